package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/ka2n/jobharvest/api"
	"github.com/ka2n/jobharvest/api/harvest"
	"github.com/ka2n/jobharvest/api/record"
	"github.com/ka2n/jobharvest/api/sink"
	"github.com/ka2n/jobharvest/api/source"
	"github.com/morikuni/failure/v2"
)

func strPtr(s string) *string { return &s }

func testReport(t *testing.T) *api.Report {
	t.Helper()
	site, err := source.ParseURL("https://pultegroup.wd1.myworkdayjobs.com/PGI")
	if err != nil {
		t.Fatal(err)
	}
	total := 4
	return &api.Report{
		Site:  site,
		Label: "Pultegroup",
		Result: &harvest.Result{
			Records: []record.Normalized{
				{ID: strPtr("JR1"), Title: "Sales | Ops", Location: "Atlanta, GA", Posted: "Posted Today"},
				{Title: "Estimator", Location: "Austin,\nTX"},
				{ID: strPtr("JR3"), Title: "Engineer"},
				{ID: strPtr("JR4"), Title: "Analyst"},
			},
			Metrics: harvest.Metrics{
				State:         harvest.Done,
				TotalRecords:  4,
				RecordsWithID: 3,
				PagesFetched:  1,
				Attempts:      2,
				Elapsed:       1500 * time.Millisecond,
				DeclaredTotal: &total,
			},
		},
		Outputs: []sink.Written{{Name: "csv", Dest: "output/pultegroup.csv", Bytes: 321}},
	}
}

func TestPlainReport(t *testing.T) {
	got := plainReport(testReport(t))
	want := `Harvest DONE for Pultegroup: 4 records (3 with job ID, 75.0%) in 1 pages, 2 requests, 1.5s
  csv: output/pultegroup.csv (321 bytes)
Sample:
  JR1 | Sales | Ops | Atlanta, GA | Posted Today
  Estimator | Austin, TX
  JR3 | Engineer
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plainReport() mismatch (-want +got):\n%s", diff)
	}
}

func TestReportMarkdown(t *testing.T) {
	r := testReport(t)

	sample := reportMarkdown(r, sampleSize)
	for _, want := range []string{
		"# Harvest: Pultegroup",
		"| Endpoint | https://pultegroup.wd1.myworkdayjobs.com/wday/cxs/pultegroup/PGI/jobs |",
		"| With job ID | 3 (75.0%) |",
		"| Declared total | 4 |",
		"- csv: `output/pultegroup.csv` (321 bytes)",
		"## Sample records",
		`| JR1 | Sales \| Ops | Atlanta, GA | Posted Today |`,
		"| - | Estimator | Austin, TX |  |",
	} {
		if !strings.Contains(sample, want) {
			t.Errorf("summary missing %q\n%s", want, sample)
		}
	}
	if strings.Contains(sample, "Analyst") {
		t.Errorf("summary lists more than %d records", sampleSize)
	}

	full := reportMarkdown(r, -1)
	if !strings.Contains(full, "## Records") || !strings.Contains(full, "| JR4 | Analyst |") {
		t.Errorf("full report missing records:\n%s", full)
	}
}

func TestPrintReportPlain(t *testing.T) {
	var buf bytes.Buffer
	r := testReport(t)
	r.Result.Metrics.State = harvest.Aborted
	r.Result.Metrics.Aborted = true
	r.Result.Metrics.AbortReason = "Page at offset 40 failed after 3 attempts"
	if err := printReport(&buf, r, false); err != nil {
		t.Fatalf("printReport() error = %v", err)
	}
	if !strings.Contains(buf.String(), "aborted: Page at offset 40 failed after 3 attempts") {
		t.Errorf("abort reason missing:\n%s", buf.String())
	}
}

func TestFacetFlag(t *testing.T) {
	f := facetFlag{}
	for _, v := range []string{"locations=abc", "jobFamilyGroup=x", "locations = def"} {
		if err := f.Set(v); err != nil {
			t.Fatalf("Set(%q) error = %v", v, err)
		}
	}
	if got, want := f.String(), "jobFamilyGroup=x locations=abc,def"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	got := f.merge(map[string]any{"other": true})
	want := map[string]any{
		"other":          true,
		"locations":      []string{"abc", "def"},
		"jobFamilyGroup": []string{"x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merge() mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=x", "k="} {
		if err := f.Set(bad); !failure.Is(err, InvalidFilter) {
			t.Errorf("Set(%q) error = %v, want %v", bad, err, InvalidFilter)
		}
	}
	if got := (facetFlag{}).merge(nil); got != nil {
		t.Errorf("empty merge = %v, want nil", got)
	}
}

func TestEndpointCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"endpoint", "acme.wd5.myworkdayjobs.com/en-US/External"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{
		"Company:  acme (Acme)",
		"Version:  wd5",
		"Site:     External",
		"Endpoint: https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/jobs",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q\n%s", want, out.String())
		}
	}
}

func TestReportViewerSearch(t *testing.T) {
	content := "# Harvest\nJR1 Sales\nJR2 Estimator\nJR3 Sales Lead"
	m := newReportViewer(content, "DONE")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})

	m.search("sales")
	if diff := cmp.Diff([]int{1, 3}, m.matches); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	m.jump(1)
	if m.current != 1 {
		t.Errorf("current = %d after next, want 1", m.current)
	}
	m.jump(1)
	if m.current != 0 {
		t.Errorf("current = %d after wrap, want 0", m.current)
	}

	// capitals make the search case-sensitive
	m.search("Sales Lead")
	if diff := cmp.Diff([]int{3}, m.matches); diff != "" {
		t.Errorf("case-sensitive matches mismatch (-want +got):\n%s", diff)
	}
	m.search("sales lead")
	if len(m.matches) != 1 {
		t.Errorf("case-insensitive matches = %v", m.matches)
	}

	m.clearSearch()
	if len(m.matches) != 0 {
		t.Errorf("matches after clear = %v", m.matches)
	}
	if !strings.Contains(m.View(), "DONE") {
		t.Errorf("status line missing from view")
	}
}
