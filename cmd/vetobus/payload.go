package main

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid JSON payload")

// parsePayload decodes a JSON document into Go values: objects become
// map[string]any, arrays []any, whole numbers int64 and other numbers
// float64. A non-empty path selects a sub-document with gjson path syntax.
func parsePayload(doc, path string) (any, error) {
	if !gjson.Valid(doc) {
		return nil, errInvalidJSON
	}

	res := gjson.Parse(doc)
	if path != "" {
		res = res.Get(path)
		if !res.Exists() {
			return nil, fmt.Errorf("path %q: no such value", path)
		}
	}
	return convert(res), nil
}

func convert(r gjson.Result) any {
	switch {
	case r.IsObject():
		m := make(map[string]any)
		r.ForEach(func(k, v gjson.Result) bool {
			m[k.String()] = convert(v)
			return true
		})
		return m
	case r.IsArray():
		arr := r.Array()
		out := make([]any, len(arr))
		for i, v := range arr {
			out[i] = convert(v)
		}
		return out
	}

	switch r.Type {
	case gjson.Number:
		if i := r.Int(); float64(i) == r.Num {
			return i
		}
		return r.Num
	case gjson.String:
		return r.Str
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return nil
	}
}
