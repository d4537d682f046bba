package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
		want any
	}{
		{"string", `"hi"`, "", "hi"},
		{"integer", `42`, "", int64(42)},
		{"float", `1.5`, "", 1.5},
		{"bool", `true`, "", true},
		{"null", `null`, "", nil},
		{"array", `[1,"a",false]`, "", []any{int64(1), "a", false}},
		{
			"object",
			`{"path":"a.txt","size":3,"tags":["x"],"meta":{"ok":true}}`,
			"",
			map[string]any{
				"path": "a.txt",
				"size": int64(3),
				"tags": []any{"x"},
				"meta": map[string]any{"ok": true},
			},
		},
		{"selected", `{"a":{"b":[10,20]}}`, "a.b.1", int64(20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePayload(tt.doc, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePayloadErrors(t *testing.T) {
	_, err := parsePayload(`{"a":`, "")
	assert.ErrorIs(t, err, errInvalidJSON)

	_, err = parsePayload(`{"a":1}`, "b")
	assert.ErrorContains(t, err, `path "b"`)
}
