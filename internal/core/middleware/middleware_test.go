package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestLogging_SetsRequestID(t *testing.T) {
	h := Logging(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if id := rr.Header().Get("X-Request-ID"); len(id) != 16 {
		t.Fatalf("X-Request-ID=%q", id)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("X-Request-ID=%q want abc", got)
	}
}

func TestRecover_Returns500(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	h := Recover(l)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("log=%q", buf.String())
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { t.Fatal("should not reach handler") }))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/fetch", nil)
	req.Header.Set("Origin", "http://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	h.ServeHTTP(rr, req)
	if rr.Code/100 != 2 {
		t.Fatalf("status=%d", rr.Code)
	}
	if m := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(m, "POST") {
		t.Fatalf("methods=%q", m)
	}
	if o := rr.Header().Get("Access-Control-Allow-Origin"); o != "*" {
		t.Fatalf("origin=%q", o)
	}
}

func TestCORS_ExposesETag(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Header().Set("ETag", `"x"`) }))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	req.Header.Set("Origin", "http://example.org")
	h.ServeHTTP(rr, req)
	if e := rr.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(e, "Etag") && !strings.Contains(e, "ETag") {
		t.Fatalf("expose=%q", e)
	}
}

func TestSession_MintsAndReusesCookie(t *testing.T) {
	var seen string
	h := Session(time.Hour)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie {
		t.Fatalf("cookies=%v", cookies)
	}
	if seen != cookies[0].Value || len(seen) != 36 {
		t.Fatalf("session id %q vs cookie %q", seen, cookies[0].Value)
	}

	first := seen
	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(rr, req)
	if seen != first {
		t.Fatalf("session changed: %q -> %q", first, seen)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("cookie should not be re-issued")
	}
}

func TestSession_RejectsForgedCookie(t *testing.T) {
	var seen string
	h := Session(time.Hour)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "../../etc:passwd"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "../../etc:passwd" || len(seen) != 36 {
		t.Fatalf("forged id accepted: %q", seen)
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/items/7", nil))

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `http_requests_total{method="GET",route="/api/items/{id}",status="202"}`
	if !strings.Contains(rr.Body.String(), want) {
		t.Fatalf("expected %s in payload", want)
	}
}
