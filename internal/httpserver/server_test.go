package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/taoyao-code/s1-panel-bridge/internal/config"
	appmetrics "github.com/taoyao-code/s1-panel-bridge/internal/metrics"
)

func TestHealthzReadyzMetrics(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	handler := appmetrics.Handler(reg)
	srv := New(cfg, "/metrics", handler, func() bool { return true })

	// healthz
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz code=%d", rr.Code)
	}

	// readyz ok
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/readyz code=%d", rr.Code)
	}

	// metrics
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics code=%d", rr.Code)
	}
}

func TestReadyzNotReady(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	handler := appmetrics.Handler(reg)
	srv := New(cfg, "/metrics", handler, func() bool { return false })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz not-ready code=%d", rr.Code)
	}
}

func TestRegister(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0"}
	srv := New(cfg, "", nil, nil)
	srv.Register(func(r *gin.Engine) {
		r.GET("/api/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "pong" {
		t.Fatalf("/api/ping code=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestPprof(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", Pprof: cfgpkg.HTTPPprof{Enable: true, Prefix: "/debug/pprof"}}
	srv := New(cfg, "", nil, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/goroutine?debug=1", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/debug/pprof/goroutine code=%d", rr.Code)
	}
}
