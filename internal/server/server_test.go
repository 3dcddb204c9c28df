package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/cache"
	"github.com/avatarstudio/avatarstudio/internal/handler"
	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/middleware"
	"github.com/avatarstudio/avatarstudio/internal/service"
	"github.com/avatarstudio/avatarstudio/internal/store"
	"github.com/avatarstudio/avatarstudio/internal/testutil"
)

// denyAfter allows the first n checks per scope and blocks the rest.
type denyAfter struct {
	mu    sync.Mutex
	n     int
	calls map[string]int
}

func (d *denyAfter) CheckRateLimit(_ context.Context, scope, _ string, _, _ int) (*cache.RateLimitResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[scope]++
	if d.calls[scope] > d.n {
		return &cache.RateLimitResult{Allowed: false, RetryAfter: 2 * time.Second, ResetAt: time.Now().Add(2 * time.Second)}, nil
	}
	return &cache.RateLimitResult{Allowed: true, Remaining: int64(d.n - d.calls[scope]), ResetAt: time.Now().Add(time.Minute)}, nil
}

func newTestRouter(limiter middleware.Limiter) (http.Handler, *service.SharingService) {
	logger := testutil.DiscardLogger()
	st := store.NewMemory()
	rec := metrics.NewInMemory()

	analytics := service.NewAnalyticsService(st, logger, rec)
	leads := service.NewLeadService(st, logger, rec)
	shares := service.NewSharingService(st, "https://studio.test", "https://qr.test", logger, rec)

	r := NewRouter(Handlers{
		Root:      handler.New(),
		Health:    handler.NewHealthHandler(map[string]handler.HealthChecker{"store": st}),
		Metrics:   handler.NewMetricsHandler(rec),
		Analytics: handler.NewAnalyticsHandler(analytics, logger),
		Leads:     handler.NewLeadHandler(leads, logger),
		Shares:    handler.NewShareHandler(shares, analytics, leads, logger),
	}, RouterConfig{
		Logger:            logger,
		CORS:              middleware.DefaultCORSConfig(),
		Security:          middleware.SecurityConfig{IsDevelopment: true},
		MaxBodySize:       1 << 10,
		Limiter:           limiter,
		RateLimitEnabled:  limiter != nil,
		ShareAccessPerMin: 30,
		ShareAccessBurst:  2,
		LoginPerMin:       10,
		LoginBurst:        5,
	})
	return r, shares
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/analytics", "", http.StatusOK},
		{http.MethodGet, "/api/analytics/summary", "", http.StatusOK},
		{http.MethodGet, "/api/leads", "", http.StatusOK},
		{http.MethodGet, "/api/leads/stats", "", http.StatusOK},
		{http.MethodGet, "/api/leads/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/api/shares/analytics", "", http.StatusOK},
		{http.MethodGet, "/watch/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/nowhere", "", http.StatusNotFound},
		{http.MethodPatch, "/api/leads", "", http.StatusMethodNotAllowed},
		// Account and avatar routes are not mounted without their handlers.
		{http.MethodPost, "/api/auth/login", `{"email":"a@b.c","password":"x"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			rec := serve(h, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_AppliesGlobalMiddleware(t *testing.T) {
	h, _ := newTestRouter(nil)

	rec := serve(h, http.MethodGet, "/api/health", "")

	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}

	rec = serve(h, http.MethodPost, "/api/leads", `{"name":"`+strings.Repeat("x", 2048)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 for oversized body, got %d", rec.Code)
	}
}

func TestRouter_RateLimitsShareAccess(t *testing.T) {
	limiter := &denyAfter{n: 2, calls: map[string]int{}}
	h, shares := newTestRouter(limiter)

	share, err := shares.ShareVideo(context.Background(), testutil.NewShareInput("vid-1"))
	if err != nil {
		t.Fatalf("ShareVideo: %v", err)
	}

	for i := 0; i < 2; i++ {
		if rec := serve(h, http.MethodGet, "/watch/"+share.ID, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := serve(h, http.MethodGet, "/watch/"+share.ID, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false {
		t.Errorf("expected failure envelope, got %v", body)
	}

	// Owner routes are not limited.
	if rec := serve(h, http.MethodGet, "/api/shares/"+share.ID, ""); rec.Code != http.StatusOK {
		t.Errorf("owner route should not be limited, got %d", rec.Code)
	}
}

func TestServer_ShutdownRunsComponentsInReverse(t *testing.T) {
	srv := New(http.NotFoundHandler(), Options{Port: 0, ShutdownTimeout: time.Second}, testutil.DiscardLogger())

	var order []string
	srv.OnShutdown("store", func(context.Context) error {
		order = append(order, "store")
		return nil
	})
	srv.OnShutdown("scheduler", func(context.Context) error {
		order = append(order, "scheduler")
		return errors.New("still running")
	})

	err := srv.Shutdown()

	if err == nil || !strings.Contains(err.Error(), "still running") {
		t.Errorf("expected component error, got %v", err)
	}
	if strings.Join(order, ",") != "scheduler,store" {
		t.Errorf("unexpected shutdown order: %v", order)
	}
}
