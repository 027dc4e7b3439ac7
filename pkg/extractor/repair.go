package extractor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	thinkTagRe  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
)

// RemoveThinkTags removes <think> tags and everything in between them from a string.
func RemoveThinkTags(input string) string {
	return thinkTagRe.ReplaceAllString(input, "")
}

// StripCodeFences returns the body of the first markdown code block, or the
// input unchanged when there is none.
func StripCodeFences(input string) string {
	if m := codeFenceRe.FindStringSubmatch(input); m != nil {
		return strings.TrimSpace(m[1])
	}
	return input
}

// ParseObjects recovers a list of JSON objects from raw model output.
//
// The whole response is tried first. Otherwise the top-level bracketed
// values are scanned left to right and the first well-formed array wins,
// falling back to the first well-formed object. When nothing parses the
// candidate is handed to jsonrepair. A single object becomes a one-element
// list, a lone array wrapped in an object is unwrapped, and scalars or
// non-object elements are discarded. The boolean reports whether any JSON
// could be recovered at all.
func ParseObjects(raw string) ([]map[string]any, bool) {
	value, ok := parseJSON(raw)
	if !ok {
		return nil, false
	}
	return coerceObjects(value), true
}

func parseJSON(raw string) (any, bool) {
	text := strings.TrimSpace(StripCodeFences(RemoveThinkTags(raw)))
	if text == "" {
		return nil, false
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		return value, true
	}

	if candidate, ok := scanJSON(text); ok {
		if err := json.Unmarshal([]byte(candidate), &value); err == nil {
			return value, true
		}
	}

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return nil, false
	}
	repaired, err := jsonrepair.JSONRepair(text[start:])
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, false
	}
	return value, true
}

// scanJSON finds the first top-level array in text that is valid JSON, or
// the first valid object when no array qualifies.
func scanJSON(text string) (string, bool) {
	var firstObject string
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '[' && c != '{' {
			continue
		}
		end := matchBracket(text, i)
		if end < 0 {
			continue
		}
		candidate := text[i : end+1]
		if !json.Valid([]byte(candidate)) {
			continue
		}
		if c == '[' {
			return candidate, true
		}
		if firstObject == "" {
			firstObject = candidate
		}
		// Skip the object body so nested arrays are not taken for top-level ones.
		i = end
	}
	return firstObject, firstObject != ""
}

// matchBracket returns the index of the bracket closing the one at start, or
// -1. Brackets inside JSON strings are ignored.
func matchBracket(text string, start int) int {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

func coerceObjects(value any) []map[string]any {
	switch v := value.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		if inner, ok := wrappedArray(v); ok {
			return objectsOf(inner)
		}
		return []map[string]any{v}
	default:
		return nil
	}
}

// wrappedArray unwraps {"locations": [...]} style responses: an object whose
// only value is an array of objects.
func wrappedArray(obj map[string]any) ([]any, bool) {
	if len(obj) != 1 {
		return nil, false
	}
	for _, v := range obj {
		list, ok := v.([]any)
		if !ok {
			return nil, false
		}
		for _, item := range list {
			if _, ok := item.(map[string]any); !ok {
				return nil, false
			}
		}
		return list, true
	}
	return nil, false
}

func objectsOf(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
