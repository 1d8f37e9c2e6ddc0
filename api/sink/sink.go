package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ka2n/jobharvest/api/record"
	"github.com/ka2n/jobharvest/log"
	"golang.org/x/sync/errgroup"
)

// Columns is the fixed output schema, in order
var Columns = []string{"job_id", "title", "location", "posting_date", "url", "company", "scraped_at"}

// TimestampLayout formats the scraped_at column
const TimestampLayout = time.RFC3339

// Writer persists a record sequence to dest and returns the bytes written
type Writer interface {
	Write(ctx context.Context, records []record.Normalized, dest string) (int64, error)
}

// Target pairs a writer with its destination
type Target struct {
	Name   string
	Writer Writer
	Dest   string
}

// Written reports one finished target
type Written struct {
	Name  string `json:"name"`
	Dest  string `json:"dest"`
	Bytes int64  `json:"bytes"`
}

// Row returns the column values of r in Columns order. Values are verbatim; a nil id is "".
func Row(r record.Normalized) []string {
	return []string{
		r.IDString(),
		r.Title,
		r.Location,
		r.Posted,
		r.URL,
		r.Source,
		r.HarvestedAt.Format(TimestampLayout),
	}
}

// DefaultPath is dir/{company}_jobs_{YYYYmmdd_HHMMSS}{ext}
func DefaultPath(dir, company string, now time.Time, ext string) string {
	company = strings.ToLower(strings.TrimSpace(company))
	if company == "" {
		company = "workday"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_jobs_%s%s", company, now.Format("20060102_150405"), ext))
}

// WriteAll writes records to every target concurrently. Targets are independent
// files; the first failure is returned after all writers have finished.
func WriteAll(ctx context.Context, records []record.Normalized, targets []Target) ([]Written, error) {
	written := make([]Written, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			n, err := t.Writer.Write(ctx, records, t.Dest)
			if err != nil {
				log.Error("failed to write output", "sink", t.Name, "dest", t.Dest, "error", err)
				return err
			}
			log.Info("output written", "sink", t.Name, "dest", t.Dest, "records", len(records), "bytes", n)
			written[i] = Written{Name: t.Name, Dest: t.Dest, Bytes: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return written, err
	}
	return written, nil
}
