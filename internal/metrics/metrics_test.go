package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/occurrence-explorer/internal/core/observability"
)

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestProvider_ServesDefaultCollectorsAndBuildInfo(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test", Revision: "r", Branch: "b", BuildDate: "now"}})

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "smoke"})
	p.Register(g)
	g.Set(42)
	if n := testutil.CollectAndCount(g); n == 0 {
		t.Fatalf("expected at least 1 sample from test_gauge, got %d", n)
	}

	body := scrape(t, p)
	for _, s := range []string{"go_goroutines", `app_build_info{`, `version="test"`, "test_gauge 42"} {
		if !strings.Contains(body, s) {
			t.Fatalf("expected %q in payload; got:\n%s", s, body)
		}
	}
}

func TestProvider_IncludesServiceCollectors(t *testing.T) {
	p := Init(Config{})
	observability.IncPipelineResult("ok")
	observability.ObserveSessionOp("memory", "get", nil, 0.0001)

	body := scrape(t, p)
	for _, s := range []string{`pipeline_results_total{outcome="ok"}`, `session_op_total{driver="memory",op="get",result="ok"}`, `version="dev"`} {
		if !strings.Contains(body, s) {
			t.Fatalf("expected %q in payload; got:\n%s", s, body)
		}
	}
}
