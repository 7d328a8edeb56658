package occurrence

import "github.com/mohammed-shakir/occurrence-explorer/internal/core/model"

// Flatten turns a nested JSON object into one tabular row. Nested objects
// become dotted keys ("location.lat"); arrays and scalars are kept as values.
func Flatten(obj map[string]any) model.Record {
	out := make(model.Record, len(obj))
	flattenInto(out, "", obj)
	return out
}

func flattenInto(out model.Record, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}
