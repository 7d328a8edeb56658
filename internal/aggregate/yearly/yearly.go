// Package yearly counts geolocated occurrences per calendar year.
package yearly

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
)

const DefaultDateField = "eventDate"

type Count struct {
	Year   int `json:"year"`
	Counts int `json:"counts"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// Counts groups records by the year of field, ascending. Records whose date is
// missing or unparseable are left out of every bucket.
func Counts(g *model.GeoCollection, field string) []Count {
	if field == "" {
		field = DefaultDateField
	}
	byYear := map[int]int{}
	if g != nil {
		for _, r := range g.Records {
			if y, ok := Year(r.Properties[field]); ok {
				byYear[y]++
			}
		}
	}
	out := make([]Count, 0, len(byYear))
	for _, y := range slices.Sorted(maps.Keys(byYear)) {
		out = append(out, Count{Year: y, Counts: byYear[y]})
	}
	return out
}

// Year extracts a UTC year from a date string or an epoch-milliseconds number,
// the two shapes the occurrence service emits.
func Year(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC().Year(), true
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochMillisYear(float64(ms))
		}
		return 0, false
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return epochMillisYear(f)
	case float64:
		return epochMillisYear(t)
	case int64:
		return epochMillisYear(float64(t))
	case int:
		return epochMillisYear(float64(t))
	default:
		return 0, false
	}
}

func epochMillisYear(ms float64) (int, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, false
	}
	return time.UnixMilli(int64(ms)).UTC().Year(), true
}
