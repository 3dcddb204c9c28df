// Package main is the entrypoint for the avatarstudio API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/avatarstudio/avatarstudio/internal/auth"
	"github.com/avatarstudio/avatarstudio/internal/avatarapi"
	"github.com/avatarstudio/avatarstudio/internal/cache"
	"github.com/avatarstudio/avatarstudio/internal/config"
	"github.com/avatarstudio/avatarstudio/internal/handler"
	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/middleware"
	"github.com/avatarstudio/avatarstudio/internal/repository"
	"github.com/avatarstudio/avatarstudio/internal/scheduler"
	"github.com/avatarstudio/avatarstudio/internal/server"
	"github.com/avatarstudio/avatarstudio/internal/service"
	"github.com/avatarstudio/avatarstudio/internal/store"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := scheduler.ValidateSchedule(cfg.CleanupSchedule); err != nil {
		logger.Error("invalid_config", "error", err)
		os.Exit(1)
	}

	// Accounts and photo avatars
	if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("migration_failed", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
		os.Exit(1)
	}
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"database_connect_failed",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("database_connected")

	// Key-value store behind analytics, leads and shares
	kv, err := store.Open(ctx, &cfg.Store)
	if err != nil {
		logger.Error(
			"store_open_failed",
			slog.String("driver", cfg.Store.Driver),
			slog.String("error", sanitizeError(err, cfg.Store.DatabaseURL, cfg.Store.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("store_opened", "driver", kv.Driver())

	// Optional Redis for rate limiting
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"redis_connect_failed",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		logger.Info("redis_connected")
	}

	// Services
	recorder := metrics.NewInMemory()
	analyticsService := service.NewAnalyticsService(kv, logger, recorder)
	leadService := service.NewLeadService(kv, logger, recorder)
	sharingService := service.NewSharingService(kv, cfg.ShareBaseURL, cfg.QRServiceURL, logger, recorder)
	accountService := service.NewAccountService(repo, auth.NewHasher(auth.DefaultParams), logger)

	avatarClient := avatarapi.New(avatarapi.Config{
		BaseURL:           cfg.AvatarAPIURL,
		APIKey:            cfg.AvatarAPIKey,
		RequestsPerSecond: cfg.AvatarAPIRPS,
		Logger:            logger,
	})
	if !avatarClient.Configured() {
		logger.Warn("avatar_api_not_configured")
	}
	avatarService := service.NewAvatarService(repo, avatarClient, logger)

	// Expired share sweep
	sweeper := scheduler.New(sharingService, cfg.CleanupSchedule, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error("scheduler_start_failed", "error", err)
		os.Exit(1)
	}

	// Health checks
	checks := map[string]handler.HealthChecker{
		"store":    kv,
		"postgres": repo,
		"redis":    nil,
	}
	var limiter middleware.Limiter
	if cacheClient != nil {
		checks["redis"] = cacheClient
		limiter = cacheClient
	}

	r := server.NewRouter(server.Handlers{
		Root:      handler.New(),
		Health:    handler.NewHealthHandler(checks),
		Metrics:   handler.NewMetricsHandler(recorder),
		Accounts:  handler.NewAccountHandler(accountService, logger),
		Avatars:   handler.NewAvatarHandler(avatarService, analyticsService, logger),
		Analytics: handler.NewAnalyticsHandler(analyticsService, logger),
		Leads:     handler.NewLeadHandler(leadService, logger),
		Shares:    handler.NewShareHandler(sharingService, analyticsService, leadService, logger),
	}, server.RouterConfig{
		Logger:            logger,
		CORS:              corsConfig(cfg),
		Security:          middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		MaxBodySize:       cfg.MaxRequestBodySize,
		Limiter:           limiter,
		RateLimitEnabled:  cfg.RateLimitActive(),
		ShareAccessPerMin: cfg.RateLimitShareAccessPerMin,
		ShareAccessBurst:  cfg.RateLimitShareAccessBurst,
		LoginPerMin:       cfg.RateLimitLoginPerMin,
		LoginBurst:        cfg.RateLimitLoginBurst,
	})

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first, closed last.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("store", func(context.Context) error {
		return kv.Close()
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}
	srv.OnShutdown("scheduler", sweeper.Stop)

	logger.Info("starting_server",
		"port", cfg.AppPort,
		"share_base_url", cfg.ShareBaseURL,
		"store_driver", kv.Driver(),
		"rate_limit", cfg.RateLimitActive(),
		"env", cfg.AppEnv,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server_error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// corsConfig applies CORS_ALLOWED_ORIGINS to the defaults.
func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	return c
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
