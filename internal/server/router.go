package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avatarstudio/avatarstudio/internal/handler"
	"github.com/avatarstudio/avatarstudio/internal/middleware"
)

// Handlers are the HTTP handlers mounted by NewRouter. Accounts and
// Avatars are optional; their routes are only mounted when set.
type Handlers struct {
	Root      *handler.Handler
	Health    *handler.HealthHandler
	Metrics   *handler.MetricsHandler
	Accounts  *handler.AccountHandler
	Avatars   *handler.AvatarHandler
	Analytics *handler.AnalyticsHandler
	Leads     *handler.LeadHandler
	Shares    *handler.ShareHandler
}

// RouterConfig configures the middleware stack.
type RouterConfig struct {
	Logger      *slog.Logger
	CORS        middleware.CORSConfig
	Security    middleware.SecurityConfig
	MaxBodySize int64

	// Limiter backs the public share and login limits. Nil disables them.
	Limiter           middleware.Limiter
	RateLimitEnabled  bool
	ShareAccessPerMin int
	ShareAccessBurst  int
	LoginPerMin       int
	LoginBurst        int
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(h Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	shareLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Logger:    cfg.Logger,
		Limiter:   cfg.Limiter,
		Enabled:   cfg.RateLimitEnabled,
		Scope:     middleware.ScopeShareAccess,
		PerMinute: cfg.ShareAccessPerMin,
		Burst:     cfg.ShareAccessBurst,
	})
	loginLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Logger:    cfg.Logger,
		Limiter:   cfg.Limiter,
		Enabled:   cfg.RateLimitEnabled,
		Scope:     middleware.ScopeLogin,
		PerMinute: cfg.LoginPerMin,
		Burst:     cfg.LoginBurst,
	})

	// Probes
	r.Get("/", h.Root.Index)
	r.Get("/readyz", h.Health.Readyz)
	r.Get("/metrics", h.Metrics.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health.Health)

		if h.Accounts != nil {
			r.Post("/auth/register", h.Accounts.Register)
			r.With(loginLimit).Post("/auth/login", h.Accounts.Login)
			r.Get("/user/{id}", h.Accounts.GetUser)
			r.Put("/user/{id}/profile", h.Accounts.UpdateProfile)
		}

		if h.Avatars != nil {
			r.Route("/photo-avatars", func(r chi.Router) {
				r.Post("/", h.Avatars.CreatePhotoAvatar)
				r.Get("/user/{userId}", h.Avatars.ListPhotoAvatars)
				r.Get("/{avatarId}", h.Avatars.GetPhotoAvatar)
				r.Put("/{avatarId}/status", h.Avatars.UpdateStatus)
				r.Delete("/{avatarId}", h.Avatars.DeletePhotoAvatar)
			})
			r.Post("/videos", h.Avatars.GenerateVideo)
			r.Get("/videos/{videoId}/status", h.Avatars.VideoStatus)
		}

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/", h.Analytics.List)
			r.Post("/", h.Analytics.Create)
			r.Get("/summary", h.Analytics.Summary)
			r.Get("/export", h.Analytics.Export)
			r.Get("/videos/{videoId}", h.Analytics.Get)
			r.Delete("/videos/{videoId}", h.Analytics.Delete)
			r.Post("/videos/{videoId}/views", h.Analytics.RecordView)
			r.Post("/videos/{videoId}/engagements", h.Analytics.RecordEngagement)
		})

		// Static segments take precedence over {id} in chi.
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.Leads.List)
			r.Post("/", h.Leads.Create)
			r.Get("/stats", h.Leads.Stats)
			r.Get("/export", h.Leads.Export)
			r.Put("/bulk/status", h.Leads.BulkStatus)
			r.Get("/{id}", h.Leads.Get)
			r.Put("/{id}", h.Leads.Update)
			r.Delete("/{id}", h.Leads.Delete)
			r.Post("/{id}/notes", h.Leads.AddNote)
			r.Put("/{id}/status", h.Leads.ChangeStatus)
			r.Post("/{id}/tags", h.Leads.AddTags)
		})

		r.Route("/shares", func(r chi.Router) {
			r.Get("/", h.Shares.List)
			r.Post("/", h.Shares.Create)
			r.Get("/analytics", h.Shares.Analytics)
			r.Post("/cleanup", h.Shares.Cleanup)
			r.Get("/{shareId}", h.Shares.Get)
			r.Put("/{shareId}", h.Shares.Update)
			r.Delete("/{shareId}", h.Shares.Delete)
			r.Get("/{shareId}/message", h.Shares.Message)
			r.Post("/{shareId}/email", h.Shares.Email)
		})
	})

	// Public share pages with IP-based rate limiting
	r.Route("/watch/{shareId}", func(r chi.Router) {
		r.Use(shareLimit)
		r.Get("/", h.Shares.Watch)
		r.Post("/leads", h.Shares.CaptureLead)
	})

	// 404 and 405 handlers
	r.NotFound(h.Root.NotFound)
	r.MethodNotAllowed(h.Root.MethodNotAllowed)

	return r
}
