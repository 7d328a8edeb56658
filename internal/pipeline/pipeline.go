// Package pipeline runs name -> taxon -> occurrences -> geometry as one call.
// It holds no state between runs; callers own whatever they keep.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/observability"
	"github.com/mohammed-shakir/occurrence-explorer/internal/geometry"
	"github.com/mohammed-shakir/occurrence-explorer/internal/occurrence"
)

var (
	ErrSpeciesNotFound = errors.New("species not found")
	ErrNoRecords       = errors.New("no occurrence records returned")
)

type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeNoRecord Outcome = "no_records"
	OutcomeUpstream Outcome = "upstream_error"
	OutcomeGeometry Outcome = "geometry_error"
	OutcomeInvalid  Outcome = "invalid"
)

type Resolver interface {
	Resolve(ctx context.Context, name string, field model.NameField) (string, bool, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, q occurrence.Query) (*model.Collection, error)
}

type Request struct {
	Name     string
	Field    model.NameField
	YearFrom *int
	YearTo   *int
	PageSize int
}

type Result struct {
	TVK       string
	Fetched   int
	Dropped   int
	Geo       *model.GeoCollection
	StartedAt time.Time
	Duration  time.Duration
}

type Pipeline struct {
	log      *slog.Logger
	resolver Resolver
	fetcher  Fetcher
	now      func() time.Time
}

func New(logger *slog.Logger, r Resolver, f Fetcher) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{log: logger, resolver: r, fetcher: f, now: time.Now}
}

// Run resolves the name, fetches every page and attaches geometry.
//
// ErrNoRecords comes back with a non-nil Result carrying the TVK so callers
// can report the resolved species alongside the warning.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{StartedAt: p.now()}
	res, err := p.run(ctx, req, res)
	res.Duration = p.now().Sub(res.StartedAt)
	observability.IncPipelineResult(string(Classify(err)))
	if err != nil && !errors.Is(err, ErrNoRecords) {
		return nil, err
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request, res *Result) (*Result, error) {
	if req.PageSize <= 0 {
		req.PageSize = occurrence.DefaultPageSize
	}
	if req.Field == "" {
		req.Field = model.CommonName
	}

	tvk, found, err := p.resolver.Resolve(ctx, req.Name, req.Field)
	if err != nil {
		return res, err
	}
	if !found {
		return res, fmt.Errorf("%w: %q", ErrSpeciesNotFound, req.Name)
	}
	res.TVK = tvk
	p.log.InfoContext(ctx, "species resolved", "name", req.Name, "tvk", tvk)

	rows, err := p.fetcher.Fetch(ctx, occurrence.Query{
		TVK:      tvk,
		YearFrom: req.YearFrom,
		YearTo:   req.YearTo,
		PageSize: req.PageSize,
	})
	if err != nil {
		return res, err
	}
	res.Fetched = rows.Len()
	if rows.Len() == 0 {
		return res, ErrNoRecords
	}

	geo, err := geometry.Build(rows)
	if err != nil {
		return res, err
	}
	res.Geo = geo
	res.Dropped = rows.Len() - geo.Len()
	observability.AddGeometryDropped(res.Dropped)

	p.log.InfoContext(ctx, "occurrences geolocated",
		"tvk", tvk,
		"fetched", res.Fetched,
		"geolocated", geo.Len(),
		"dropped", res.Dropped)
	return res, nil
}

// Classify maps a Run error onto the outcome shown to the user.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrSpeciesNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrNoRecords):
		return OutcomeNoRecord
	case errors.Is(err, geometry.ErrNoCoordinateColumns):
		return OutcomeGeometry
	default:
		return OutcomeUpstream
	}
}
