// Package mapper bins geolocated occurrences into H3 cells.
package mapper

import (
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
)

type CellCount struct {
	Cell  string `json:"cell"`
	Count int    `json:"count"`
}

type Interface interface {
	CellCounts(g *model.GeoCollection, res int) ([]CellCount, error)
	CellFeatures(counts []CellCount) ([]*geojson.Feature, error)
}
