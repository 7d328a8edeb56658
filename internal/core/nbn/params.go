// Package nbn builds requests for, and decodes responses from, the NBN Atlas
// species and occurrence search services.
package nbn

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
)

const (
	DefaultSpeciesSearchURL    = "https://species-ws.nbnatlas.org/search"
	DefaultOccurrenceSearchURL = "https://records-ws.nbnatlas.org/occurrences/search"

	// SpeciesCandidates caps how many matches the species service returns.
	SpeciesCandidates = 5

	// OpenYear is the unbounded upper end of a year range filter.
	OpenYear = "*"
)

func SpeciesSearchParams(name string, field model.NameField) url.Values {
	if field == "" {
		field = model.CommonName
	}
	v := url.Values{}
	v.Set("q", fmt.Sprintf(`%s:"%s"`, field, name))
	v.Set("pageSize", strconv.Itoa(SpeciesCandidates))
	return v
}

// OccurrenceSearchParams builds one page request. The year filter is only
// attached when yearFrom is set; a nil yearTo leaves the range open.
func OccurrenceSearchParams(tvk string, yearFrom, yearTo *int, pageSize, start int) url.Values {
	v := url.Values{}
	v.Set("q", "lsid:"+tvk)
	v.Set("pageSize", strconv.Itoa(pageSize))
	v.Set("start", strconv.Itoa(start))
	if yearFrom != nil {
		to := OpenYear
		if yearTo != nil {
			to = strconv.Itoa(*yearTo)
		}
		v.Set("fq", fmt.Sprintf("year:[%d TO %s]", *yearFrom, to))
	}
	return v
}

type SpeciesResult struct {
	GUID           string `json:"guid"`
	Name           string `json:"name,omitempty"`
	CommonName     string `json:"commonName,omitempty"`
	ScientificName string `json:"scientificName,omitempty"`
	Rank           string `json:"rank,omitempty"`
}

type SpeciesSearchResponse struct {
	SearchResults struct {
		TotalRecords int             `json:"totalRecords"`
		Results      []SpeciesResult `json:"results"`
	} `json:"searchResults"`
}

// Occurrences have no fixed schema; rows are flattened downstream.
type OccurrenceSearchResponse struct {
	TotalRecords int              `json:"totalRecords"`
	Occurrences  []map[string]any `json:"occurrences"`
}
