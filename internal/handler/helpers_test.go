package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/service"
	"github.com/avatarstudio/avatarstudio/internal/store"
	"github.com/avatarstudio/avatarstudio/internal/testutil"
)

// dataServices bundles the store-backed services over one Memory store.
type dataServices struct {
	store     *store.Memory
	metrics   *metrics.InMemoryRecorder
	analytics *service.AnalyticsService
	leads     *service.LeadService
	shares    *service.SharingService
}

func newDataServices() *dataServices {
	st := store.NewMemory()
	rec := metrics.NewInMemory()
	logger := testutil.DiscardLogger()
	return &dataServices{
		store:     st,
		metrics:   rec,
		analytics: service.NewAnalyticsService(st, logger, rec),
		leads:     service.NewLeadService(st, logger, rec),
		shares:    service.NewSharingService(st, "https://studio.test", "https://qr.test/create", logger, rec),
	}
}

// router mounts the data-service handlers the way the server does.
func (d *dataServices) router() http.Handler {
	logger := testutil.DiscardLogger()
	analytics := NewAnalyticsHandler(d.analytics, logger)
	leads := NewLeadHandler(d.leads, logger)
	shares := NewShareHandler(d.shares, d.analytics, d.leads, logger)

	r := chi.NewRouter()
	r.Route("/api/analytics", func(r chi.Router) {
		r.Get("/", analytics.List)
		r.Post("/", analytics.Create)
		r.Get("/summary", analytics.Summary)
		r.Get("/export", analytics.Export)
		r.Get("/videos/{videoId}", analytics.Get)
		r.Delete("/videos/{videoId}", analytics.Delete)
		r.Post("/videos/{videoId}/views", analytics.RecordView)
		r.Post("/videos/{videoId}/engagements", analytics.RecordEngagement)
	})
	r.Route("/api/leads", func(r chi.Router) {
		r.Get("/", leads.List)
		r.Post("/", leads.Create)
		r.Get("/stats", leads.Stats)
		r.Get("/export", leads.Export)
		r.Put("/bulk/status", leads.BulkStatus)
		r.Get("/{id}", leads.Get)
		r.Put("/{id}", leads.Update)
		r.Delete("/{id}", leads.Delete)
		r.Post("/{id}/notes", leads.AddNote)
		r.Put("/{id}/status", leads.ChangeStatus)
		r.Post("/{id}/tags", leads.AddTags)
	})
	r.Route("/api/shares", func(r chi.Router) {
		r.Get("/", shares.List)
		r.Post("/", shares.Create)
		r.Get("/analytics", shares.Analytics)
		r.Post("/cleanup", shares.Cleanup)
		r.Get("/{shareId}", shares.Get)
		r.Put("/{shareId}", shares.Update)
		r.Delete("/{shareId}", shares.Delete)
		r.Get("/{shareId}/message", shares.Message)
		r.Post("/{shareId}/email", shares.Email)
	})
	r.Get("/watch/{shareId}", shares.Watch)
	r.Post("/watch/{shareId}/leads", shares.CaptureLead)
	return r
}

// do sends a request with an optional JSON body and decodes the envelope.
func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Header().Get("Content-Type") == "application/json" && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, resp
}

// object returns resp[key] as a JSON object.
func object(t *testing.T, resp map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := resp[key].(map[string]any)
	if !ok {
		t.Fatalf("response has no object %q: %v", key, resp)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectFailure(t *testing.T, resp map[string]any, message string) {
	t.Helper()
	if resp["success"] != false {
		t.Errorf("expected success=false, got %v", resp["success"])
	}
	if message != "" && resp["message"] != message {
		t.Errorf("expected message %q, got %v", message, resp["message"])
	}
}
