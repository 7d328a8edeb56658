package occurrence

import (
	"reflect"
	"testing"
)

func TestFlatten_NestedObjectsBecomeDottedKeys(t *testing.T) {
	in := map[string]any{
		"uuid": "a",
		"location": map[string]any{
			"lat": 52.1,
			"geo": map[string]any{"datum": "WGS84"},
		},
		"images": []any{"x", "y"},
		"empty":  map[string]any{},
		"nil":    nil,
	}
	got := Flatten(in)
	want := map[string]any{
		"uuid":               "a",
		"location.lat":       52.1,
		"location.geo.datum": "WGS84",
		"images":             []any{"x", "y"},
		"empty":              map[string]any{},
		"nil":                nil,
	}
	if !reflect.DeepEqual(map[string]any(got), want) {
		t.Fatalf("Flatten mismatch\n got: %#v\nwant: %#v", got, want)
	}
}
