// Package prompts holds the chat prompts used to extract narrative objects
// and relationships from free text.
package prompts

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/loregraph/pkg/nlp"
	"github.com/soundprediction/loregraph/pkg/types"
)

// PromptFunction is a function that generates prompt messages from context.
type PromptFunction func(context map[string]interface{}) ([]types.Message, error)

// PromptVersion represents a versioned prompt function.
type PromptVersion interface {
	Call(context map[string]interface{}) ([]types.Message, error)
}

// promptVersionImpl implements PromptVersion.
type promptVersionImpl struct {
	fn PromptFunction
}

// Call executes the prompt function with the given context.
func (p *promptVersionImpl) Call(context map[string]interface{}) ([]types.Message, error) {
	messages, err := p.fn(context)
	if err != nil {
		return nil, err
	}

	// Add unicode preservation instruction to system messages
	for i, msg := range messages {
		if msg.Role == nlp.RoleSystem {
			messages[i].Content += "\nDo not escape unicode characters.\n"
		}
	}

	return messages, nil
}

// NewPromptVersion creates a new PromptVersion from a function.
func NewPromptVersion(fn PromptFunction) PromptVersion {
	return &promptVersionImpl{fn: fn}
}

// ToPromptJSON serializes data to JSON for use in prompts.
// HTML characters are left unescaped; indent > 0 pretty-prints.
func ToPromptJSON(data interface{}, indent int) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// ToPromptYAML serializes data to YAML for use in prompts.
func ToPromptYAML(data interface{}) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatData renders data as YAML when the context sets use_yaml, JSON otherwise.
func formatData(context map[string]interface{}, data interface{}) (string, error) {
	if boolValue(context, "use_yaml") {
		return ToPromptYAML(data)
	}
	return ToPromptJSON(data, 2)
}

func stringValue(context map[string]interface{}, key string) string {
	if s, ok := context[key].(string); ok {
		return s
	}
	return ""
}

func boolValue(context map[string]interface{}, key string) bool {
	b, _ := context[key].(bool)
	return b
}

func intValue(context map[string]interface{}, key string, def int) int {
	if n, ok := context[key].(int); ok && n > 0 {
		return n
	}
	return def
}

func loggerFrom(context map[string]interface{}) *slog.Logger {
	if l, ok := context["logger"].(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// logPrompts logs the rendered prompts at debug level when DEBUG_LLM_PROMPTS=true.
func logPrompts(logger *slog.Logger, sysPrompt, userPrompt string) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" {
		return
	}
	logger.Debug("Generated prompts", "system", sysPrompt, "user", userPrompt)
}

// LogResponse logs a raw model response at debug level when DEBUG_LLM_PROMPTS=true.
func LogResponse(logger *slog.Logger, content string) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" {
		return
	}
	logger.Debug("LLM response", "content", content)
}
