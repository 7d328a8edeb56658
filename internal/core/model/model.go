// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/twpayne/go-geom"
)

// CRS is the reference system every geolocated record is tagged with.
const (
	CRS  = "EPSG:4326"
	SRID = 4326
)

type NameField string

const (
	CommonName     NameField = "commonName"
	ScientificName NameField = "scientificName"
)

func ParseNameField(s string) (NameField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "common", "commonname":
		return CommonName, nil
	case "scientific", "scientificname":
		return ScientificName, nil
	default:
		return "", fmt.Errorf("unsupported name field %q (want commonName|scientificName)", s)
	}
}

// Record is one flattened occurrence row. Keys are dotted JSON paths.
type Record map[string]any

// Collection is the ordered set of rows gathered across pages.
// Columns is the union of row keys in first-seen order.
type Collection struct {
	Columns []string
	Rows    []Record

	seen map[string]struct{}
}

func NewCollection() *Collection {
	return &Collection{seen: map[string]struct{}{}}
}

// Append adds rows in order and extends the column set.
func (c *Collection) Append(rows ...Record) {
	if c.seen == nil {
		c.seen = make(map[string]struct{}, len(c.Columns))
		for _, col := range c.Columns {
			c.seen[col] = struct{}{}
		}
	}
	for _, r := range rows {
		for _, k := range sortedKeys(r) {
			if _, ok := c.seen[k]; ok {
				continue
			}
			c.seen[k] = struct{}{}
			c.Columns = append(c.Columns, k)
		}
		c.Rows = append(c.Rows, r)
	}
}

func (c *Collection) HasColumn(name string) bool {
	if c == nil {
		return false
	}
	if c.seen != nil {
		_, ok := c.seen[name]
		return ok
	}
	for _, col := range c.Columns {
		if col == name {
			return true
		}
	}
	return false
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Rows)
}

// row keys have no inherent order once decoded into a map
func sortedKeys(r Record) []string {
	return slices.Sorted(maps.Keys(r))
}

type GeoRecord struct {
	Point      *geom.Point
	Properties Record
}

func (g GeoRecord) Lon() float64 { return g.Point.X() }
func (g GeoRecord) Lat() float64 { return g.Point.Y() }

type GeoCollection struct {
	CRS       string
	LonColumn string
	LatColumn string
	Records   []GeoRecord
}

func (g *GeoCollection) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Records)
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
