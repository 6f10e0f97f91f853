package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/auger/internal/cse"
	"github.com/FranksOps/auger/internal/extract"
	"github.com/FranksOps/auger/internal/infer"
	"github.com/FranksOps/auger/internal/metrics"
	"github.com/FranksOps/auger/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config provides parameters for a harvest run.
type Config struct {
	// Organization is the company name every query anchors on, exact-match.
	Organization string
	// RoleTerms refine the queries one by one; the empty term searches the
	// bare organization name.
	RoleTerms []string
	// MaxPages caps result pages fetched per query (0 = default 10).
	MaxPages int
	// PageSize is the number of results requested per page (0 = default 10).
	PageSize int
	// EmailFormat is the pattern candidate addresses are built from,
	// e.g. {f}{last}@example.com. Empty disables inference.
	EmailFormat string
	// EmailPolicy selects how names with three or more tokens map onto the
	// {last} placeholder.
	EmailPolicy infer.Policy
	// FlushInterval is how often buffered results are pushed to the backend
	// while the run is in progress (0 = default 30s).
	FlushInterval time.Duration
}

// Stats is a snapshot of the harvest progress counters.
type Stats struct {
	Profiles  int
	Queries   int
	Discarded int
}

// Harvester runs the query plan against a search provider, extracts employee
// identities from the results, and persists them.
type Harvester struct {
	cfg      Config
	provider cse.Provider
	backend  storage.Backend
	logger   *slog.Logger

	mu        sync.Mutex
	seen      map[string]struct{}
	profiles  int
	queries   int
	discarded int
}

// New creates a Harvester. An empty role term list degrades to the single
// bare-organization query.
func New(cfg Config, provider cse.Provider, backend storage.Backend, logger *slog.Logger) *Harvester {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.EmailPolicy == "" {
		cfg.EmailPolicy = infer.PolicyMulti
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if len(cfg.RoleTerms) == 0 {
		cfg.RoleTerms = []string{""}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Harvester{
		cfg:      cfg,
		provider: provider,
		backend:  backend,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

// Run executes the full query plan. A credential rejection aborts the run;
// throttling and transient failures end the current query and move on to the
// next one. The backend is flushed periodically so an interrupted run keeps
// most of what it found; the final flush belongs to the caller.
func (h *Harvester) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	planDone := make(chan struct{})

	g.Go(func() error {
		ticker := time.NewTicker(h.cfg.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-planDone:
				return nil
			case <-ticker.C:
				if err := h.backend.Flush(gCtx); err != nil {
					h.logger.Error("periodic flush failed", "err", err)
				}
			}
		}
	})

	g.Go(func() error {
		defer close(planDone)
		return h.runPlan(gCtx)
	})

	return g.Wait()
}

func (h *Harvester) runPlan(ctx context.Context) error {
	for _, role := range h.cfg.RoleTerms {
		query := strings.TrimSpace(`"` + h.cfg.Organization + `" ` + role)

		h.mu.Lock()
		h.queries++
		h.mu.Unlock()

		h.logger.Info("running query", "query", query)

		for page := 0; page < h.cfg.MaxPages; page++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := page*h.cfg.PageSize + 1
			results, err := h.provider.Search(ctx, query, start)
			if err != nil {
				var authErr *cse.AuthError
				if errors.As(err, &authErr) {
					return fmt.Errorf("credentials rejected: %w", err)
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				var throttle *cse.ThrottleError
				if errors.As(err, &throttle) {
					h.logger.Warn("query throttled, moving on", "query", query, "page", page, "err", err)
					break
				}
				h.logger.Warn("query page failed, moving on", "query", query, "page", page, "err", err)
				break
			}

			if len(results) == 0 {
				break
			}

			for _, res := range results {
				h.ingest(ctx, res, query)
			}
		}
	}

	return nil
}

// ingest turns a single search result into a stored employee. Links are
// deduplicated across the whole run; a link only counts as seen once its
// record is saved.
func (h *Harvester) ingest(ctx context.Context, res cse.Result, query string) {
	link := res.Link
	if link == "" {
		return
	}

	h.mu.Lock()
	_, dup := h.seen[link]
	h.mu.Unlock()
	if dup {
		return
	}

	name := extract.CleanTitle(res.DisplayTitle())
	if reason := extract.NoiseReason(name); reason != "" {
		h.logger.Debug("discarding result", "link", link, "reason", reason)
		metrics.RecordDiscard(reason)
		h.mu.Lock()
		h.discarded++
		h.mu.Unlock()
		return
	}

	snippet := strings.ReplaceAll(res.DisplaySnippet(), "\n", " ")

	emp := &storage.Employee{
		ID:             uuid.New().String(),
		Name:           name,
		ProfileURL:     link,
		Snippet:        snippet,
		InferredEmails: infer.Emails(name, h.cfg.EmailFormat, h.cfg.EmailPolicy),
		RoleHints:      extract.MatchHints(snippet, h.cfg.RoleTerms),
		SourceQuery:    query,
		FoundAt:        time.Now().UTC(),
	}

	if err := h.backend.Save(ctx, emp); err != nil {
		h.logger.Error("failed to save employee", "link", link, "err", err)
		return
	}

	h.mu.Lock()
	h.seen[link] = struct{}{}
	h.profiles++
	h.mu.Unlock()

	metrics.RecordProfile()
	h.logger.Info("profile found", "name", name, "link", link)
}

// Stats returns a snapshot of the run counters.
func (h *Harvester) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		Profiles:  h.profiles,
		Queries:   h.queries,
		Discarded: h.discarded,
	}
}
