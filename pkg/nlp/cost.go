package nlp

import (
	"strings"
	"unicode"
)

// CostCalculator estimates spend from token counts using per-1k-token rates.
type CostCalculator struct {
	rates       map[string]float64
	defaultRate float64
}

// NewCostCalculator returns a calculator with the built-in rate table.
func NewCostCalculator() *CostCalculator {
	return &CostCalculator{
		rates: map[string]float64{
			"gpt-4o-mini":     0.0001,
			"gpt-4o":          0.005,
			"claude-3-sonnet": 0.003,
			"claude-3-haiku":  0.0005,
			"gemini-pro":      0.001,
		},
		defaultRate: 0.001,
	}
}

// SetRate overrides the per-1k-token rate for a model prefix.
func (c *CostCalculator) SetRate(model string, per1k float64) {
	c.rates[model] = per1k
}

// CalculateCost returns the estimated USD cost of one call.
func (c *CostCalculator) CalculateCost(model string, promptTokens, completionTokens int) float64 {
	return float64(promptTokens+completionTokens) / 1000 * c.rate(model)
}

// rate picks the longest matching prefix so "gpt-4o-mini-2024" prices as
// gpt-4o-mini rather than gpt-4o.
func (c *CostCalculator) rate(model string) float64 {
	model = strings.ToLower(model)
	best, bestLen := c.defaultRate, 0
	for prefix, r := range c.rates {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = r, len(prefix)
		}
	}
	return best
}

// EstimateTokens approximates a token count from whitespace and punctuation
// separated words. Used when a provider reports no usage, as with streams.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return int(float64(len(words)) * 1.3)
}
