// Package occurrence pages through the NBN occurrence search for one taxon.
package occurrence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/nbn"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/observability"
)

const upstreamName = "occurrences"

const (
	DefaultPageSize  = 500
	DefaultPageDelay = 200 * time.Millisecond
)

type Getter interface {
	GetJSON(ctx context.Context, upstream, endpoint string, params url.Values, v any) error
}

type Query struct {
	TVK      string
	YearFrom *int
	YearTo   *int
	PageSize int
}

type Fetcher struct {
	log      *slog.Logger
	exec     Getter
	endpoint string
	delay    time.Duration
	timeout  time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Fetcher)

// WithPageDelay sets the fixed pause between successive page requests.
func WithPageDelay(d time.Duration) Option {
	return func(f *Fetcher) { f.delay = d }
}

// WithTimeout bounds each page request.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

func New(exec Getter, endpoint string, opts ...Option) *Fetcher {
	if endpoint == "" {
		endpoint = nbn.DefaultOccurrenceSearchURL
	}
	f := &Fetcher{
		log:      slog.New(slog.DiscardHandler),
		exec:     exec,
		endpoint: endpoint,
		delay:    DefaultPageDelay,
		timeout:  60 * time.Second,
		sleep:    sleepCtx,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch collects every page for q.TVK in fetch order. A page shorter than the
// page size, or an empty page, ends the walk. Any upstream failure aborts the
// whole fetch and no rows are returned.
//
// Rows are not deduplicated: if upstream data shifts between pages the same
// occurrence can appear twice.
func (f *Fetcher) Fetch(ctx context.Context, q Query) (*model.Collection, error) {
	if q.TVK == "" {
		return nil, errors.New("taxon identifier is required")
	}
	if q.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be positive (got %d)", q.PageSize)
	}

	out := model.NewCollection()
	for start, page := 0, 0; ; start, page = start+q.PageSize, page+1 {
		if page > 0 && f.delay > 0 {
			if err := f.sleep(ctx, f.delay); err != nil {
				return nil, fmt.Errorf("occurrence fetch interrupted: %w", err)
			}
		}

		rows, err := f.page(ctx, q, start)
		if err != nil {
			return nil, fmt.Errorf("occurrence page at offset %d: %w", start, err)
		}
		observability.AddOccurrencePage(len(rows))
		f.log.Debug("occurrence page",
			"tvk", q.TVK,
			"start", start,
			"rows", len(rows))

		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			out.Append(Flatten(r))
		}
		if len(rows) < q.PageSize {
			break
		}
	}
	return out, nil
}

func (f *Fetcher) page(ctx context.Context, q Query, start int) ([]map[string]any, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	params := nbn.OccurrenceSearchParams(q.TVK, q.YearFrom, q.YearTo, q.PageSize, start)

	var resp nbn.OccurrenceSearchResponse
	if err := f.exec.GetJSON(ctx, upstreamName, f.endpoint, params, &resp); err != nil {
		return nil, err
	}
	return resp.Occurrences, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
