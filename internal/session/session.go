// Package session keeps each dashboard session's single result slot.
//
// A slot holds at most one Snapshot. Put replaces it wholesale; nothing is
// merged across fetches. Stored data is transient and expires with the session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/aggregate/geojsonagg"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
)

var ErrEmpty = errors.New("session has no results")

type Snapshot struct {
	Species   string               `json:"species"`
	Field     model.NameField      `json:"field"`
	TVK       string               `json:"tvk"`
	YearFrom  *int                 `json:"yearFrom,omitempty"`
	PageSize  int                  `json:"pageSize"`
	Fetched   int                  `json:"fetched"`
	Dropped   int                  `json:"dropped"`
	FetchedAt time.Time            `json:"fetchedAt"`
	Geo       *model.GeoCollection `json:"-"`
}

type Store interface {
	// Get returns ErrEmpty when the slot is empty or expired.
	Get(ctx context.Context, id string) (*Snapshot, error)
	Put(ctx context.Context, id string, s *Snapshot) error
	Clear(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type wireSnapshot struct {
	Snapshot
	Results json.RawMessage `json:"results"`
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	fc, err := geojsonagg.Encode(s.Geo)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(wireSnapshot{Snapshot: *s, Results: fc})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

func decodeSnapshot(b []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	geo, err := geojsonagg.Decode(w.Results)
	if err != nil {
		return nil, fmt.Errorf("snapshot results: %w", err)
	}
	s := w.Snapshot
	s.Geo = geo
	return &s, nil
}
