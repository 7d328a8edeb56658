package dashboard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
)

var testDefaults = Defaults{PageSize: 500, YearFrom: 2000, HexRes: 6}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/fetch", strings.NewReader(body))
}

func TestParseFetchRequest_Defaults(t *testing.T) {
	req, err := ParseFetchRequest(post(`{"species":"  Smooth newt "}`), testDefaults)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.Name != "Smooth newt" || req.Field != model.CommonName || req.PageSize != 500 {
		t.Fatalf("got %+v", req)
	}
	if req.YearFrom == nil || *req.YearFrom != 2000 {
		t.Fatalf("YearFrom=%v want 2000", req.YearFrom)
	}
}

func TestParseFetchRequest_Explicit(t *testing.T) {
	req, err := ParseFetchRequest(post(`{"species":"Lissotriton vulgaris","by":"scientificName","year_from":1990,"page_size":100}`), testDefaults)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.Field != model.ScientificName || *req.YearFrom != 1990 || req.PageSize != 100 {
		t.Fatalf("got %+v", req)
	}
}

func TestParseFetchRequest_AllYears(t *testing.T) {
	req, err := ParseFetchRequest(post(`{"species":"Adder","all_years":true,"year_from":1990}`), testDefaults)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if req.YearFrom != nil {
		t.Fatalf("YearFrom=%v want nil", *req.YearFrom)
	}
}

func TestParseFetchRequest_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty body":     ``,
		"bad json":       `{"species":`,
		"unknown field":  `{"species":"Adder","bbox":"1,2,3,4"}`,
		"blank species":  `{"species":"   "}`,
		"long species":   `{"species":"` + strings.Repeat("a", 201) + `"}`,
		"bad field":      `{"species":"Adder","by":"vernacular"}`,
		"year too early": `{"species":"Adder","year_from":1599}`,
		"year too late":  `{"species":"Adder","year_from":2101}`,
		"page too large": `{"species":"Adder","page_size":1001}`,
		"negative page":  `{"species":"Adder","page_size":-5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseFetchRequest(post(body), testDefaults); err == nil {
				t.Fatalf("expected error for %s", body)
			}
		})
	}
}
