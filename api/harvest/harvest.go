package harvest

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ka2n/jobharvest/api/record"
	"github.com/ka2n/jobharvest/api/workday"
	"github.com/ka2n/jobharvest/log"
	"github.com/morikuni/failure/v2"
)

const (
	DefaultLimit    = 20
	DefaultMaxPages = 500
	DefaultDelay    = 1500 * time.Millisecond
)

// Fetcher retrieves one page of raw listings
type Fetcher interface {
	Fetch(ctx context.Context, req workday.PageRequest) (workday.PageResponse, error)
}

// Config controls pagination
type Config struct {
	// Endpoint is recorded on the session for logs
	Endpoint string
	// SourceLabel is stamped on every record
	SourceLabel string
	Limit       int
	// MaxPages stops the run when reached; the run still ends as Done
	MaxPages int
	// Delay is slept between consecutive pages
	Delay   time.Duration
	Filters map[string]any
}

// Harvester pages through an endpoint until a short page, a fatal error or the page cap
type Harvester struct {
	fetcher  Fetcher
	resolver *record.Resolver
	cfg      Config

	// Now is the clock used for elapsed time
	Now func() time.Time
	// Sleep waits between pages
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Harvester. Zero Limit and MaxPages take their defaults.
func New(fetcher Fetcher, resolver *record.Resolver, cfg Config) *Harvester {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	return &Harvester{
		fetcher:  fetcher,
		resolver: resolver,
		cfg:      cfg,
		Now:      time.Now,
		Sleep:    workday.Sleep,
	}
}

// Run harvests every page. On abort it returns the records collected so far
// together with the error; callers persist them either way.
func (h *Harvester) Run(ctx context.Context) (*Result, error) {
	s := &Session{
		Endpoint:  h.cfg.Endpoint,
		State:     Running,
		startedAt: h.Now(),
	}
	logger := log.Logger.With("endpoint", s.Endpoint)
	logger.Info("harvest started", "limit", h.cfg.Limit, "max_pages", h.cfg.MaxPages, "delay", h.cfg.Delay)

	err := h.loop(ctx, s, logger)
	if err != nil {
		s.State = Aborted
		s.abortReason = failure.MessageOf(err).String()
		if s.abortReason == "" {
			s.abortReason = err.Error()
		}
		logger.Error("harvest aborted", "offset", s.Offset, "records", len(s.Collected), "error", err)
	} else {
		s.State = Done
		h.checkDeclaredTotal(s, logger)
	}

	result := &Result{Records: s.Collected, Metrics: s.metrics(h.Now())}
	logger.Info("harvest finished",
		"state", s.State,
		"records", result.Metrics.TotalRecords,
		"with_id", result.Metrics.RecordsWithID,
		"pages", result.Metrics.PagesFetched,
		"attempts", result.Metrics.Attempts,
	)
	if err != nil {
		return result, failure.Wrap(err, failure.Context{"endpoint": s.Endpoint})
	}
	return result, nil
}

func (h *Harvester) loop(ctx context.Context, s *Session, logger *slog.Logger) error {
	for s.State == Running {
		if s.pages >= h.cfg.MaxPages {
			s.capReached = true
			logger.Warn("page cap reached, stopping early", "max_pages", h.cfg.MaxPages, "records", len(s.Collected))
			return nil
		}

		if s.pages > 0 {
			if err := h.Sleep(ctx, h.cfg.Delay); err != nil {
				return canceled(err, s.Offset)
			}
		}
		if err := ctx.Err(); err != nil {
			return canceled(err, s.Offset)
		}

		page, err := h.fetcher.Fetch(ctx, workday.PageRequest{
			Offset:  s.Offset,
			Limit:   h.cfg.Limit,
			Filters: h.cfg.Filters,
		})
		s.AttemptCount += page.Attempts
		if err != nil {
			return err
		}

		s.pages++
		if s.declaredTotal == nil && page.TotalDeclared != nil && *page.TotalDeclared > 0 {
			s.declaredTotal = page.TotalDeclared
		}

		for _, raw := range page.Records {
			s.Collected = append(s.Collected, h.resolver.Normalize(raw, h.cfg.SourceLabel))
		}
		logger.Info("page fetched",
			"page", s.pages,
			"offset", s.Offset,
			"records", len(page.Records),
			"collected", len(s.Collected),
		)

		if len(page.Records) < h.cfg.Limit {
			return nil
		}
		s.Offset += h.cfg.Limit
	}
	return nil
}

func (h *Harvester) checkDeclaredTotal(s *Session, logger *slog.Logger) {
	if s.capReached || s.declaredTotal == nil {
		return
	}
	if *s.declaredTotal != len(s.Collected) {
		logger.Warn("declared total differs from collected records",
			"declared", *s.declaredTotal,
			"collected", len(s.Collected),
		)
	}
}

func canceled(err error, offset int) error {
	return failure.Wrap(err, failure.WithCode(workday.ErrCanceled),
		failure.Message("Harvest was canceled"),
		failure.Context{"offset": strconv.Itoa(offset)},
	)
}
