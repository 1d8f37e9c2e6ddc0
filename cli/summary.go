package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/ka2n/jobharvest/api"
	"github.com/ka2n/jobharvest/api/harvest"
	"github.com/ka2n/jobharvest/api/record"
	"github.com/samber/lo"
)

// sampleSize is how many records the summary shows
const sampleSize = 3

var badgeStyle = lipgloss.NewStyle().
	Bold(true).
	Padding(0, 1).
	Foreground(lipgloss.Color("0"))

// statusBadge renders the final state, yellow when the page cap cut the run short
func statusBadge(m harvest.Metrics) string {
	color := lipgloss.Color("42") // green
	label := m.State.String()
	switch {
	case m.Aborted:
		color = lipgloss.Color("196") // red
	case m.CapReached:
		color = lipgloss.Color("214") // yellow
		label += " (page cap)"
	}
	return badgeStyle.Background(color).Render(label)
}

// statusLine is the one-line outcome shown under the pager
func statusLine(r *api.Report) string {
	m := r.Result.Metrics
	return fmt.Sprintf("%s %s: %d records, %.1f%% with job ID",
		statusBadge(m), r.Label, m.TotalRecords, m.IDCompleteness())
}

// printReport writes the run summary, as styled markdown on a terminal
func printReport(w io.Writer, r *api.Report, tty bool) error {
	if !tty {
		_, err := io.WriteString(w, plainReport(r))
		return err
	}

	out, err := renderMarkdown(reportMarkdown(r, sampleSize))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n%s", statusBadge(r.Result.Metrics), out)
	return err
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}

// reportMarkdown describes a run; records are listed up to limit, all when negative
func reportMarkdown(r *api.Report, limit int) string {
	m := r.Result.Metrics
	var b strings.Builder

	fmt.Fprintf(&b, "# Harvest: %s\n\n", r.Label)
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Endpoint | %s |\n", cell(r.Site.Endpoint()))
	fmt.Fprintf(&b, "| State | %s |\n", m.State)
	if m.AbortReason != "" {
		fmt.Fprintf(&b, "| Abort reason | %s |\n", cell(m.AbortReason))
	}
	fmt.Fprintf(&b, "| Records | %d |\n", m.TotalRecords)
	fmt.Fprintf(&b, "| With job ID | %d (%.1f%%) |\n", m.RecordsWithID, m.IDCompleteness())
	if m.DeclaredTotal != nil {
		fmt.Fprintf(&b, "| Declared total | %d |\n", *m.DeclaredTotal)
	}
	fmt.Fprintf(&b, "| Pages | %d |\n", m.PagesFetched)
	fmt.Fprintf(&b, "| Requests | %d |\n", m.Attempts)
	fmt.Fprintf(&b, "| Elapsed | %s |\n", m.Elapsed.Round(time.Millisecond))

	if len(r.Outputs) > 0 {
		b.WriteString("\n## Outputs\n\n")
		for _, o := range r.Outputs {
			if o.Dest == "" {
				continue
			}
			fmt.Fprintf(&b, "- %s: `%s` (%d bytes)\n", o.Name, o.Dest, o.Bytes)
		}
	}

	records := r.Result.Records
	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}
	if len(records) > 0 {
		if limit >= 0 {
			b.WriteString("\n## Sample records\n\n")
		} else {
			b.WriteString("\n## Records\n\n")
		}
		b.WriteString("| Job ID | Title | Location | Posted |\n|---|---|---|---|\n")
		for _, rec := range records {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				cell(lo.Ternary(rec.HasID(), rec.IDString(), "-")),
				cell(rec.Title), cell(rec.Location), cell(rec.Posted))
		}
	}
	return b.String()
}

func plainReport(r *api.Report) string {
	m := r.Result.Metrics
	var b strings.Builder

	fmt.Fprintf(&b, "Harvest %s for %s: %d records (%d with job ID, %.1f%%) in %d pages, %d requests, %s\n",
		m.State, r.Label, m.TotalRecords, m.RecordsWithID, m.IDCompleteness(),
		m.PagesFetched, m.Attempts, m.Elapsed.Round(time.Millisecond))
	if m.CapReached {
		b.WriteString("  stopped at the page cap; more listings may exist\n")
	}
	if m.AbortReason != "" {
		fmt.Fprintf(&b, "  aborted: %s\n", m.AbortReason)
	}
	for _, o := range r.Outputs {
		if o.Dest == "" {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s (%d bytes)\n", o.Name, o.Dest, o.Bytes)
	}

	samples := lo.Slice(r.Result.Records, 0, sampleSize)
	if len(samples) > 0 {
		b.WriteString("Sample:\n")
		for _, rec := range samples {
			fmt.Fprintf(&b, "  %s\n", sampleLine(rec))
		}
	}
	return b.String()
}

func sampleLine(rec record.Normalized) string {
	fields := lo.Compact(lo.Map([]string{rec.IDString(), rec.Title, rec.Location, rec.Posted},
		func(s string, _ int) string { return oneLine(s) }))
	return strings.Join(fields, " | ")
}

// oneLine collapses runs of whitespace, including newlines, to single spaces
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cell makes a value safe inside a markdown table cell
func cell(s string) string {
	return oneLine(strings.ReplaceAll(s, "|", `\|`))
}
