// Package api harvests job listings from Workday career sites and writes
// them to the configured outputs.
package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ka2n/jobharvest/api/cache"
	"github.com/ka2n/jobharvest/api/harvest"
	"github.com/ka2n/jobharvest/api/record"
	"github.com/ka2n/jobharvest/api/sink"
	"github.com/ka2n/jobharvest/api/source"
	"github.com/ka2n/jobharvest/api/workday"
	"github.com/ka2n/jobharvest/config"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// Report is everything a finished run produced
type Report struct {
	Site    source.Site
	Label   string
	Result  *harvest.Result
	Outputs []sink.Written
}

// Harvest runs one harvest described by cfg and persists the records.
// Records collected before an abort are still written; the abort error is
// returned together with the report.
func Harvest(ctx context.Context, cfg *config.Config) (*Report, error) {
	site, err := source.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	var pages *cache.Cache[[]byte]
	if cfg.CacheTTL > 0 {
		pages, err = cache.New[[]byte](cfg.CacheDir, "pages", cfg.CacheTTL.D())
		if err != nil {
			return nil, failure.Wrap(err, failure.Message("Could not open the response cache"))
		}
	}

	client, err := workday.NewClient(site, workday.Options{
		MaxRetries:  cfg.MaxRetries,
		BaseDelay:   cfg.Delay.D(),
		Jitter:      cfg.Jitter,
		Timeout:     cfg.Timeout.D(),
		Cache:       pages,
		ForceUpdate: cfg.ForceUpdate,
		Limiter:     workday.NewLimiter(cfg.MaxRPS),
	})
	if err != nil {
		return nil, err
	}

	label := cfg.Label
	if label == "" {
		label = site.Label()
	}

	h := harvest.New(client, record.NewResolver(site.BaseURL()), harvest.Config{
		Endpoint:    client.Endpoint(),
		SourceLabel: label,
		Limit:       cfg.Limit,
		MaxPages:    cfg.MaxPages,
		Delay:       cfg.Delay.D(),
		Filters:     cfg.Filters,
	})
	result, runErr := h.Run(ctx)

	report := &Report{Site: site, Label: label, Result: result}

	// an interrupted run still saves what it collected
	written, writeErr := sink.WriteAll(context.WithoutCancel(ctx), result.Records, Targets(cfg, site, time.Now()))
	report.Outputs = written

	switch {
	case runErr != nil && writeErr != nil:
		return report, errors.Join(runErr, writeErr)
	case runErr != nil:
		return report, runErr
	case writeErr != nil:
		return report, writeErr
	}
	return report, nil
}

// ErrorMessage returns the user-facing message of err. Each error joined
// into err contributes its own message.
func ErrorMessage(err error) string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return strings.Join(lo.Map(joined.Unwrap(), func(e error, _ int) string {
			return ErrorMessage(e)
		}), "; ")
	}
	if msg := failure.MessageOf(err); msg != "" {
		return msg.String()
	}
	return err.Error()
}

// Targets lists the outputs configured in cfg. CSV is always written, to a
// timestamped file under OutputDir unless Output names one.
func Targets(cfg *config.Config, site source.Site, now time.Time) []sink.Target {
	csvPath := cfg.Output
	if csvPath == "" {
		csvPath = sink.DefaultPath(cfg.OutputDir, site.Company, now, ".csv")
	}
	targets := []sink.Target{{Name: "csv", Writer: sink.CSV{}, Dest: csvPath}}
	if cfg.JSONOutput != "" {
		targets = append(targets, sink.Target{Name: "json", Writer: sink.JSON{}, Dest: cfg.JSONOutput})
	}
	if cfg.SQLiteOutput != "" {
		targets = append(targets, sink.Target{Name: "sqlite", Writer: sink.SQLite{}, Dest: cfg.SQLiteOutput})
	}
	return targets
}
