package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

type upstreamRecorder struct {
	mu         sync.Mutex
	lastPath   string
	lastQuery  url.Values
	lastHeader http.Header

	status int
	body   string
}

func (u *upstreamRecorder) handler(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.lastPath = r.URL.Path
	u.lastQuery = r.URL.Query()
	u.lastHeader = r.Header.Clone()
	status, body := u.status, u.body
	u.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newExec(t *testing.T) *Executor {
	t.Helper()
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestGetJSON_SendsParamsAndDecodes(t *testing.T) {
	up := &upstreamRecorder{body: `{"guid":"NBNSYS0000000001","n":51.123456789012}`}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	params := url.Values{}
	params.Set("q", `commonName:"Smooth newt"`)
	params.Set("pageSize", "5")

	var out map[string]any
	if err := newExec(t).GetJSON(context.Background(), "species", srv.URL+"/search", params, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.lastPath != "/search" {
		t.Fatalf("path=%q want /search", up.lastPath)
	}
	if got := up.lastQuery.Get("q"); got != `commonName:"Smooth newt"` {
		t.Fatalf("q=%q", got)
	}
	if got := up.lastHeader.Get("Accept"); got != "application/json" {
		t.Fatalf("accept=%q", got)
	}
	if out["guid"] != "NBNSYS0000000001" {
		t.Fatalf("guid=%v", out["guid"])
	}
	if _, ok := out["n"].(interface{ Float64() (float64, error) }); !ok {
		t.Fatalf("numbers should decode as json.Number, got %T", out["n"])
	}
}

func TestGetJSON_NonSuccessStatus(t *testing.T) {
	up := &upstreamRecorder{status: http.StatusServiceUnavailable, body: "maintenance\n"}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	var out map[string]any
	err := newExec(t).GetJSON(context.Background(), "occurrences", srv.URL, nil, &out)
	if err == nil {
		t.Fatal("expected error for 503")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *StatusError, got %T: %v", err, err)
	}
	if se.Code != http.StatusServiceUnavailable || se.Upstream != "occurrences" || se.Body != "maintenance" {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("error text should carry the status: %q", err.Error())
	}
}

func TestGetJSON_BadJSON(t *testing.T) {
	up := &upstreamRecorder{body: `{"occurrences":[`}
	srv := httptest.NewServer(http.HandlerFunc(up.handler))
	defer srv.Close()

	var out map[string]any
	if err := newExec(t).GetJSON(context.Background(), "occurrences", srv.URL, nil, &out); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetJSON_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var out map[string]any
	err := newExec(t).GetJSON(ctx, "species", addr, nil, &out)
	if err == nil {
		t.Fatal("expected transport error against closed server")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Fatalf("transport failure must not be a StatusError: %v", err)
	}
}
