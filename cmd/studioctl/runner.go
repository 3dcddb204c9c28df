package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/avatarstudio/avatarstudio/internal/config"
	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/service"
	"github.com/avatarstudio/avatarstudio/internal/store"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Logger *slog.Logger
	Out    io.Writer
	// Store, when set, is used instead of opening the configured one.
	Store store.Store
}

// Runner holds the services the commands act on.
type Runner struct {
	logger *slog.Logger
	out    io.Writer
	handle *store.Handle
	st     store.Store

	analytics *service.AnalyticsService
	leads     *service.LeadService
	shares    *service.SharingService
}

// NewRunner creates a Runner. Services are built immediately when cfg
// carries a Store, otherwise by Open.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{logger: cfg.Logger, out: cfg.Out}
	if cfg.Store != nil {
		r.bind(cfg.Store)
	}
	return r
}

func (r *Runner) bind(st store.Store) {
	r.st = st
	recorder := metrics.NewNoop()
	r.analytics = service.NewAnalyticsService(st, r.logger, recorder)
	r.leads = service.NewLeadService(st, r.logger, recorder)
	// Share links are not rendered here, so no base URLs are needed.
	r.shares = service.NewSharingService(st, "", "", r.logger, recorder)
}

// Open connects the store selected by STORE_DRIVER.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.analytics != nil {
		return ctx, nil
	}
	cfg, err := config.LoadStore()
	if err != nil {
		return ctx, err
	}
	h, err := store.Open(ctx, cfg)
	if err != nil {
		return ctx, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}
	r.handle = h
	r.bind(h)
	return ctx, nil
}

// Close releases the store opened by Open.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.handle == nil {
		return nil
	}
	return r.handle.Close()
}

// ExportAnalytics writes the analytics export document.
func (r *Runner) ExportAnalytics(ctx context.Context, cmd *cli.Command) error {
	doc, err := r.analytics.ExportAnalytics(ctx)
	if err != nil {
		return fmt.Errorf("exporting analytics: %w", err)
	}
	return r.writeDocument(cmd.String("output"), doc)
}

// ExportLeads writes the leads export document.
func (r *Runner) ExportLeads(ctx context.Context, cmd *cli.Command) error {
	doc, err := r.leads.ExportLeads(ctx)
	if err != nil {
		return fmt.Errorf("exporting leads: %w", err)
	}
	return r.writeDocument(cmd.String("output"), doc)
}

// CleanupShares deletes expired share links.
func (r *Runner) CleanupShares(ctx context.Context, cmd *cli.Command) error {
	removed, err := r.shares.CleanupExpiredShares(ctx)
	if err != nil {
		return fmt.Errorf("cleaning up shares: %w", err)
	}
	fmt.Fprintf(r.out, "removed %d expired share(s)\n", removed)
	return nil
}

// LeadStats prints pipeline statistics.
func (r *Runner) LeadStats(ctx context.Context, cmd *cli.Command) error {
	stats, err := r.leads.GetLeadStats(ctx)
	if err != nil {
		return fmt.Errorf("reading lead stats: %w", err)
	}
	return r.writeJSON(stats)
}

// AnalyticsSummary prints the aggregate analytics summary.
func (r *Runner) AnalyticsSummary(ctx context.Context, cmd *cli.Command) error {
	summary, err := r.analytics.GetAnalyticsSummary(ctx)
	if err != nil {
		return fmt.Errorf("reading analytics summary: %w", err)
	}
	return r.writeJSON(summary)
}

// StoreKeys lists the stored keys with the size of each value in bytes.
func (r *Runner) StoreKeys(ctx context.Context, cmd *cli.Command) error {
	keys, err := store.ListKeys(ctx, r.st)
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}
	for _, key := range keys {
		value, _, err := r.st.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		fmt.Fprintf(r.out, "%s\t%d\n", key, len(value))
	}
	return nil
}

// writeDocument writes doc to path, or to the runner output when path is
// empty or "-".
func (r *Runner) writeDocument(path, doc string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(r.out, doc)
		return err
	}
	if err := os.WriteFile(path, []byte(doc+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(r.out, "wrote %s\n", path)
	return nil
}

func (r *Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
