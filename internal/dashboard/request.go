package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
	"github.com/mohammed-shakir/occurrence-explorer/internal/pipeline"
)

const (
	MinYear         = 1600
	MaxYear         = 2100
	MaxPageSize     = 1000
	maxSpeciesRunes = 200
	maxBodyBytes    = 4 << 10
)

// FetchRequest is the body of POST /api/fetch. YearFrom falls back to the
// configured default when absent; AllYears drops the floor entirely.
type FetchRequest struct {
	Species  string `json:"species"`
	By       string `json:"by,omitempty"`
	YearFrom *int   `json:"year_from,omitempty"`
	AllYears bool   `json:"all_years,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

// ParseFetchRequest decodes and validates the body and returns a normalized
// pipeline request.
func ParseFetchRequest(r *http.Request, d Defaults) (pipeline.Request, error) {
	var fr FetchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fr); err != nil {
		if errors.Is(err, io.EOF) {
			return pipeline.Request{}, errors.New("missing request body")
		}
		return pipeline.Request{}, fmt.Errorf("invalid json body: %w", err)
	}

	name := strings.TrimSpace(fr.Species)
	if name == "" {
		return pipeline.Request{}, errors.New("missing required field: species")
	}
	if utf8.RuneCountInString(name) > maxSpeciesRunes {
		return pipeline.Request{}, fmt.Errorf("species must be at most %d characters", maxSpeciesRunes)
	}

	field, err := model.ParseNameField(fr.By)
	if err != nil {
		return pipeline.Request{}, err
	}

	var yearFrom *int
	switch {
	case fr.AllYears:
	case fr.YearFrom != nil:
		y := *fr.YearFrom
		if y < MinYear || y > MaxYear {
			return pipeline.Request{}, fmt.Errorf("year_from must be in [%d,%d]", MinYear, MaxYear)
		}
		yearFrom = &y
	default:
		y := d.YearFrom
		yearFrom = &y
	}

	size := fr.PageSize
	if size == 0 {
		size = d.PageSize
	}
	if size < 1 || size > MaxPageSize {
		return pipeline.Request{}, fmt.Errorf("page_size must be in [1,%d]", MaxPageSize)
	}

	return pipeline.Request{
		Name:     name,
		Field:    field,
		YearFrom: yearFrom,
		PageSize: size,
	}, nil
}
