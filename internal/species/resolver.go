// Package species resolves a species name to an NBN taxon version key.
//
// Matching is an exact filter on one name field and the first candidate the
// upstream returns wins. Common names shared by several taxa resolve to
// whichever the service lists first; no disambiguation is attempted.
package species

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/nbn"
)

const upstreamName = "species"

type Getter interface {
	GetJSON(ctx context.Context, upstream, endpoint string, params url.Values, v any) error
}

type Resolver struct {
	log      *slog.Logger
	exec     Getter
	endpoint string
	timeout  time.Duration
}

type Option func(*Resolver)

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

func New(exec Getter, endpoint string, opts ...Option) *Resolver {
	if endpoint == "" {
		endpoint = nbn.DefaultSpeciesSearchURL
	}
	r := &Resolver{
		log:      slog.New(slog.DiscardHandler),
		exec:     exec,
		endpoint: endpoint,
		timeout:  30 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the first matching taxon version key. found is false, with a
// nil error, when the service has no match.
func (r *Resolver) Resolve(ctx context.Context, name string, field model.NameField) (tvk string, found bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, errors.New("species name is required")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var resp nbn.SpeciesSearchResponse
	if err := r.exec.GetJSON(ctx, upstreamName, r.endpoint, nbn.SpeciesSearchParams(name, field), &resp); err != nil {
		return "", false, fmt.Errorf("species search %q: %w", name, err)
	}

	results := resp.SearchResults.Results
	if len(results) == 0 {
		r.log.Debug("species not found", "name", name, "field", string(field))
		return "", false, nil
	}
	r.log.Debug("species resolved",
		"name", name,
		"field", string(field),
		"guid", results[0].GUID,
		"candidates", len(results))
	return results[0].GUID, true, nil
}
