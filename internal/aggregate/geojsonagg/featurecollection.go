// Package geojsonagg encodes geolocated occurrences as GeoJSON FeatureCollections.
package geojsonagg

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
)

// IDProperty is copied into the feature id when present.
const IDProperty = "uuid"

type namedCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

func newNamedCRS(name string) *namedCRS {
	c := &namedCRS{Type: "name"}
	c.Properties.Name = name
	return c
}

type featureCollection struct {
	Type      string             `json:"type"`
	CRS       *namedCRS          `json:"crs,omitempty"`
	LonColumn string             `json:"lonColumn,omitempty"`
	LatColumn string             `json:"latColumn,omitempty"`
	Features  []*geojson.Feature `json:"features"`
}

// Encode renders g as a FeatureCollection carrying a named crs member.
func Encode(g *model.GeoCollection) ([]byte, error) {
	crs := model.CRS
	var lonCol, latCol string
	feats := make([]*geojson.Feature, 0, g.Len())
	if g != nil {
		if g.CRS != "" {
			crs = g.CRS
		}
		lonCol, latCol = g.LonColumn, g.LatColumn
		for _, r := range g.Records {
			f := &geojson.Feature{
				Geometry:   r.Point,
				Properties: map[string]any(r.Properties),
			}
			if id, ok := r.Properties[IDProperty].(string); ok {
				f.ID = id
			}
			feats = append(feats, f)
		}
	}
	return marshal(crs, lonCol, latCol, feats)
}

// EncodeFeatures wraps arbitrary features, e.g. hex-bin polygons.
func EncodeFeatures(feats []*geojson.Feature) ([]byte, error) {
	if feats == nil {
		feats = []*geojson.Feature{}
	}
	return marshal(model.CRS, "", "", feats)
}

func marshal(crs, lonCol, latCol string, feats []*geojson.Feature) ([]byte, error) {
	out := featureCollection{
		Type:      "FeatureCollection",
		CRS:       newNamedCRS(crs),
		LonColumn: lonCol,
		LatColumn: latCol,
		Features:  feats,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal FeatureCollection: %w", err)
	}
	return b, nil
}

// Decode parses a FeatureCollection produced by Encode. Every feature must be a point.
func Decode(b []byte) (*model.GeoCollection, error) {
	var fc featureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse FeatureCollection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf(`type is %q (want "FeatureCollection")`, fc.Type)
	}

	out := &model.GeoCollection{
		CRS:       model.CRS,
		LonColumn: fc.LonColumn,
		LatColumn: fc.LatColumn,
		Records:   make([]model.GeoRecord, 0, len(fc.Features)),
	}
	if fc.CRS != nil && fc.CRS.Properties.Name != "" {
		out.CRS = fc.CRS.Properties.Name
	}
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry is %T (want point)", i, f.Geometry)
		}
		pt.SetSRID(model.SRID)
		props := model.Record(f.Properties)
		if props == nil {
			props = model.Record{}
		}
		out.Records = append(out.Records, model.GeoRecord{Point: pt, Properties: props})
	}
	return out, nil
}
