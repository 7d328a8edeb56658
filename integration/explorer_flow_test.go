package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/occurrence-explorer/internal/app"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/config"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/health"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/server"
	"github.com/mohammed-shakir/occurrence-explorer/internal/dashboard"
	h3mapper "github.com/mohammed-shakir/occurrence-explorer/internal/mapper/h3"
	"github.com/mohammed-shakir/occurrence-explorer/internal/session"
)

// fakeAtlas serves 500, 500 and 42 occurrence rows; two rows carry no coordinates.
func fakeAtlas(t *testing.T) (speciesURL, occURL string, pages *atomic.Int32) {
	t.Helper()
	pages = &atomic.Int32{}

	sp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Query().Get("q"), `"Smooth newt"`) {
			_, _ = w.Write([]byte(`{"searchResults":{"totalRecords":0,"results":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"searchResults":{"totalRecords":1,"results":[{"guid":"NHMSYS0000080159"}]}}`))
	}))
	t.Cleanup(sp.Close)

	occ := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		if fq := r.URL.Query().Get("fq"); fq != "year:[2000 TO *]" {
			t.Errorf("fq=%q", fq)
		}
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		n := 0
		switch start {
		case 0, 500:
			n = 500
		case 1000:
			n = 42
		}
		rows := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			idx := start + i
			row := map[string]any{
				"uuid":      fmt.Sprintf("occ-%d", idx),
				"eventDate": fmt.Sprintf("%d-06-01", 2000+idx%20),
			}
			if idx != 7 && idx != 1010 {
				row["decimalLongitude"] = -4 + float64(idx%100)/50
				row["decimalLatitude"] = 51 + float64(idx%80)/20
			}
			rows = append(rows, row)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"totalRecords": 1042, "occurrences": rows})
	}))
	t.Cleanup(occ.Close)
	return sp.URL, occ.URL, pages
}

func newExplorer(t *testing.T, store session.Store) *httptest.Server {
	t.Helper()
	spURL, occURL, _ := fakeAtlas(t)
	cfg := config.Config{
		Upstream: config.UpstreamCfg{
			SpeciesURL:        spURL,
			OccurrenceURL:     occURL,
			SpeciesTimeout:    5 * time.Second,
			OccurrenceTimeout: 5 * time.Second,
			PageDelay:         time.Millisecond,
		},
	}
	h := dashboard.NewHandler(nil, app.NewPipeline(cfg, nil), store, h3mapper.New(), nil,
		dashboard.Defaults{PageSize: 500, YearFrom: 2000, HexRes: 6})
	srv := httptest.NewServer(server.NewRouter(nil, h, server.Options{
		SessionTTL: time.Hour,
		Ready:      map[string]health.Pinger{"session": store},
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func fetch(t *testing.T, c *http.Client, base, body string) (int, dashboard.FetchResponse) {
	t.Helper()
	resp, err := c.Post(base+"/api/fetch", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var out dashboard.FetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func getJSON(t *testing.T, c *http.Client, url string, v any) int {
	t.Helper()
	resp, err := c.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func runFlow(t *testing.T, store session.Store) {
	srv := newExplorer(t, store)
	alice, bob := newClient(t), newClient(t)

	code, res := fetch(t, alice, srv.URL, `{"species":"Smooth newt","year_from":2000,"page_size":500}`)
	if code != http.StatusOK || res.Outcome != "ok" {
		t.Fatalf("fetch code=%d res=%+v", code, res)
	}
	if res.Fetched != 1042 || res.Geolocated != 1040 || res.Dropped != 2 {
		t.Fatalf("counts=%+v", res)
	}

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if code := getJSON(t, alice, srv.URL+"/api/results", &fc); code != http.StatusOK || len(fc.Features) != 1040 {
		t.Fatalf("results code=%d features=%d", code, len(fc.Features))
	}

	var hex struct {
		Features []struct {
			Properties struct {
				Count int `json:"count"`
			} `json:"properties"`
		} `json:"features"`
	}
	getJSON(t, alice, srv.URL+"/api/results/hexbins?res=4", &hex)
	sum := 0
	for _, f := range hex.Features {
		sum += f.Properties.Count
	}
	if sum != 1040 {
		t.Fatalf("hex count sum=%d want 1040", sum)
	}

	// sessions are isolated
	if code := getJSON(t, bob, srv.URL+"/api/results", nil); code != http.StatusNotFound {
		t.Fatalf("bob results code=%d want 404", code)
	}

	// a failed lookup replaces alice's slot with nothing
	code, res = fetch(t, alice, srv.URL, `{"species":"Unicorn"}`)
	if code != http.StatusNotFound || res.Message != "Species not found on NBN Atlas." {
		t.Fatalf("not found code=%d res=%+v", code, res)
	}
	if code := getJSON(t, alice, srv.URL+"/api/results", nil); code != http.StatusNotFound {
		t.Fatalf("results after miss code=%d want 404", code)
	}
}

func Test_ExplorerFlow_MemoryStore(t *testing.T) {
	runFlow(t, session.NewMemoryStore(16, time.Hour))
}

func Test_ExplorerFlow_RedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, closeFn, err := app.NewSessionStore(t.Context(), config.SessionCfg{
		Driver:         "redis",
		RedisAddr:      mr.Addr(),
		TTL:            time.Hour,
		CacheOpTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = closeFn() })
	runFlow(t, store)
}
