package h3mapper

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
	"github.com/mohammed-shakir/occurrence-explorer/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

// CellCounts assigns every record to its cell at res. Output is sorted by
// descending count, then cell id, so identical input gives identical output.
func (m *Mapper) CellCounts(g *model.GeoCollection, res int) ([]mapper.CellCount, error) {
	if err := ValidateRes(res); err != nil {
		return nil, err
	}
	byCell := map[string]int{}
	if g != nil {
		for i, r := range g.Records {
			c, err := h3.LatLngToCell(h3.NewLatLng(r.Lat(), r.Lon()), res)
			if err != nil {
				return nil, fmt.Errorf("record %d: h3 cell: %w", i, err)
			}
			byCell[c.String()]++
		}
	}

	out := make([]mapper.CellCount, 0, len(byCell))
	for c, n := range byCell {
		out = append(out, mapper.CellCount{Cell: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Cell < out[j].Cell
	})
	return out, nil
}

// CellFeatures renders each cell as a closed polygon with cell and count properties.
func (m *Mapper) CellFeatures(counts []mapper.CellCount) ([]*geojson.Feature, error) {
	out := make([]*geojson.Feature, 0, len(counts))
	for _, cc := range counts {
		var c h3.Cell
		if err := c.UnmarshalText([]byte(cc.Cell)); err != nil {
			return nil, fmt.Errorf("parse cell: %w", err)
		}
		if !c.IsValid() {
			return nil, fmt.Errorf("invalid h3 cell %q", cc.Cell)
		}
		b, err := c.Boundary()
		if err != nil {
			return nil, fmt.Errorf("h3 boundary: %w", err)
		}
		out = append(out, &geojson.Feature{
			ID:       cc.Cell,
			Geometry: toPolygon(b),
			Properties: map[string]any{
				"cell":  cc.Cell,
				"count": cc.Count,
			},
		})
	}
	return out, nil
}

func ValidateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// boundary vertices are lat/lng degrees; GeoJSON wants a closed lon,lat ring
func toPolygon(b h3.CellBoundary) *geom.Polygon {
	flat := make([]float64, 0, 2*(len(b)+1))
	for _, ll := range b {
		flat = append(flat, ll.Lng, ll.Lat)
	}
	if len(b) > 0 {
		flat = append(flat, b[0].Lng, b[0].Lat)
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(model.SRID)
}
