package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Transform converts one extracted field value into a property value.
type Transform interface {
	Apply(v any) (any, error)
	Name() string
}

// NamedTransform is one of the built-in transforms addressable by name from
// schema files.
type NamedTransform string

const (
	TransformLowercase NamedTransform = "lowercase"
	TransformUppercase NamedTransform = "uppercase"
	TransformTrim      NamedTransform = "trim"
	TransformTitle     NamedTransform = "title"
	TransformToInt     NamedTransform = "to_int"
	TransformToFloat   NamedTransform = "to_float"
	TransformToBool    NamedTransform = "to_bool"
	TransformJoinList  NamedTransform = "join_list"
	TransformSplitList NamedTransform = "split_list"
	TransformJSON      NamedTransform = "json"
)

var namedTransforms = map[NamedTransform]struct{}{
	TransformLowercase: {}, TransformUppercase: {}, TransformTrim: {}, TransformTitle: {},
	TransformToInt: {}, TransformToFloat: {}, TransformToBool: {},
	TransformJoinList: {}, TransformSplitList: {}, TransformJSON: {},
}

// ParseTransform resolves a transform by name.
func ParseTransform(name string) (Transform, error) {
	t := NamedTransform(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := namedTransforms[t]; !ok {
		return nil, fmt.Errorf("unknown transform %q", name)
	}
	return t, nil
}

// Name implements Transform.
func (t NamedTransform) Name() string { return string(t) }

// Apply implements Transform.
func (t NamedTransform) Apply(v any) (any, error) {
	switch t {
	case TransformLowercase:
		s, err := asString(v)
		return strings.ToLower(s), err
	case TransformUppercase:
		s, err := asString(v)
		return strings.ToUpper(s), err
	case TransformTrim:
		s, err := asString(v)
		return strings.TrimSpace(s), err
	case TransformTitle:
		s, err := asString(v)
		return titleCase(s), err
	case TransformToInt:
		return toInt(v)
	case TransformToFloat:
		return toFloat(v)
	case TransformToBool:
		return toBool(v)
	case TransformJoinList:
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("join_list: expected list, got %T", v)
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), nil
	case TransformSplitList:
		s, err := asString(v)
		if err != nil {
			return nil, err
		}
		var out []any
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case TransformJSON:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		return string(data), nil
	}
	return nil, fmt.Errorf("unknown transform %q", string(t))
}

// TransformFunc adapts a plain function to the Transform interface.
type TransformFunc func(v any) (any, error)

// Apply implements Transform.
func (f TransformFunc) Apply(v any) (any, error) { return f(v) }

// Name implements Transform.
func (f TransformFunc) Name() string { return "func" }

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	case nil:
		return "", fmt.Errorf("expected string, got null")
	case map[string]any, []any:
		return "", fmt.Errorf("expected string, got %T", v)
	default:
		return fmt.Sprint(v), nil
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func toInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return nil, fmt.Errorf("to_int: %v is not integral", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("to_int: %w", err)
		}
		return i, nil
	}
	return nil, fmt.Errorf("to_int: unsupported type %T", v)
}

func toFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, fmt.Errorf("to_float: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("to_float: unsupported type %T", v)
}

func toBool(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		}
		return nil, fmt.Errorf("to_bool: cannot parse %q", b)
	case float64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case int64:
		return b != 0, nil
	}
	return nil, fmt.Errorf("to_bool: unsupported type %T", v)
}
