package gremlin

import (
	"fmt"

	"github.com/roach88/spider/driver/internal/httpjson"
)

// untype reduces GraphSON 3 typed values ({"@type": ..., "@value": ...})
// to plain Go values. Untyped JSON passes through with numbers converted.
func untype(v any) any {
	switch val := v.(type) {
	case map[string]any:
		typ, hasType := val["@type"].(string)
		raw, hasValue := val["@value"]
		if hasType && hasValue {
			return typed(typ, raw)
		}
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = untype(x)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = untype(x)
		}
		return out
	default:
		return httpjson.Value(v)
	}
}

func typed(typ string, raw any) any {
	if typ != "g:Map" {
		return untype(raw)
	}
	// Maps are flattened key, value, key, value.
	items, _ := raw.([]any)
	out := make(map[string]any, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		out[mapKey(untype(items[i]))] = untype(items[i+1])
	}
	return out
}

func mapKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
