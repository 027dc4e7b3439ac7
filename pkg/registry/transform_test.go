package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedTransforms(t *testing.T) {
	tests := []struct {
		name      string
		transform NamedTransform
		in        any
		want      any
		wantErr   bool
	}{
		{"lowercase", TransformLowercase, "North", "north", false},
		{"uppercase", TransformUppercase, "north", "NORTH", false},
		{"trim", TransformTrim, "  mill ", "mill", false},
		{"title", TransformTitle, "old MILL road", "Old Mill Road", false},
		{"int from float", TransformToInt, float64(7), int64(7), false},
		{"int from string", TransformToInt, " 12 ", int64(12), false},
		{"int rejects fraction", TransformToInt, 1.5, nil, true},
		{"int rejects word", TransformToInt, "many", nil, true},
		{"float from string", TransformToFloat, "0.25", 0.25, false},
		{"bool from yes", TransformToBool, "yes", true, false},
		{"bool from number", TransformToBool, float64(0), false, false},
		{"bool rejects word", TransformToBool, "maybe", nil, true},
		{"join", TransformJoinList, []any{"brave", "kind"}, "brave, kind", false},
		{"join rejects string", TransformJoinList, "brave", nil, true},
		{"split", TransformSplitList, "a, b,,c", []any{"a", "b", "c"}, false},
		{"json", TransformJSON, map[string]any{"weight": 2}, `{"weight":2}`, false},
		{"lowercase rejects object", TransformLowercase, map[string]any{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.transform.Apply(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTransform(t *testing.T) {
	tr, err := ParseTransform(" Lowercase ")
	require.NoError(t, err)
	assert.Equal(t, TransformLowercase, tr)

	_, err = ParseTransform("explode")
	assert.Error(t, err)
}

func TestTransformFunc(t *testing.T) {
	boom := errors.New("boom")
	tr := TransformFunc(func(v any) (any, error) { return nil, boom })
	_, err := tr.Apply("x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "func", tr.Name())
}
