// Package geometry attaches point geometry to tabular occurrence rows.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
)

var ErrNoCoordinateColumns = errors.New("no lon/lat columns found")

// candidate column names, highest priority first
var (
	DefaultLonColumns = []string{"decimalLongitude", "lon", "lng"}
	DefaultLatColumns = []string{"decimalLatitude", "lat"}
)

type options struct {
	lon []string
	lat []string
}

type Option func(*options)

func WithLonColumns(cols ...string) Option {
	return func(o *options) { o.lon = cols }
}

func WithLatColumns(cols ...string) Option {
	return func(o *options) { o.lat = cols }
}

// Build selects the first present longitude and latitude columns, drops rows
// lacking a usable value in either, and tags the rest with an EPSG:4326 point.
// It fails rather than returning a partial result when either column is absent.
func Build(c *model.Collection, opts ...Option) (*model.GeoCollection, error) {
	o := options{lon: DefaultLonColumns, lat: DefaultLatColumns}
	for _, f := range opts {
		f(&o)
	}

	lonCol := firstPresent(c, o.lon)
	latCol := firstPresent(c, o.lat)
	if lonCol == "" || latCol == "" {
		return nil, fmt.Errorf("%w: want one of [%s] and one of [%s]",
			ErrNoCoordinateColumns,
			strings.Join(o.lon, ", "),
			strings.Join(o.lat, ", "))
	}

	out := &model.GeoCollection{
		CRS:       model.CRS,
		LonColumn: lonCol,
		LatColumn: latCol,
		Records:   make([]model.GeoRecord, 0, c.Len()),
	}
	for _, row := range c.Rows {
		lon, ok := toFloat(row[lonCol])
		if !ok {
			continue
		}
		lat, ok := toFloat(row[latCol])
		if !ok {
			continue
		}
		pt := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(model.SRID)
		out.Records = append(out.Records, model.GeoRecord{Point: pt, Properties: row})
	}
	return out, nil
}

func firstPresent(c *model.Collection, candidates []string) string {
	for _, name := range candidates {
		if c.HasColumn(name) {
			return name
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Center returns the median latitude and longitude, or false for an empty collection.
func Center(g *model.GeoCollection) (model.LatLon, bool) {
	if g.Len() == 0 {
		return model.LatLon{}, false
	}
	lons := make([]float64, 0, len(g.Records))
	lats := make([]float64, 0, len(g.Records))
	for _, r := range g.Records {
		lons = append(lons, r.Lon())
		lats = append(lats, r.Lat())
	}
	return model.LatLon{Lat: median(lats), Lon: median(lons)}, true
}

func median(xs []float64) float64 {
	slices.Sort(xs)
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// Bounds returns the extent of all points.
func Bounds(g *model.GeoCollection) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, r := range g.Records {
		b.Extend(r.Point)
	}
	return b
}
