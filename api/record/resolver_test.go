package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return &Resolver{
		BaseURL: "https://pultegroup.wd1.myworkdayjobs.com/PGI",
		Now:     func() time.Time { return fixedNow },
	}
}

// decode parses a listing the same way the fetcher does
func decode(t *testing.T, s string) Raw {
	t.Helper()
	var raw Raw
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("Failed to decode %s: %v", s, err)
	}
	return raw
}

func ptr(s string) *string { return &s }

func TestResolveID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *string
	}{
		{
			name: "bulletFields wins over path and keys",
			raw:  `{"bulletFields": ["JR1111"], "externalPath": "/job/City/Title_JR4032", "id": "X"}`,
			want: ptr("JR1111"),
		},
		{
			name: "bulletFields skips blanks and non-strings",
			raw:  `{"bulletFields": [null, 7, "  ", " JR2222 "]}`,
			want: ptr("JR2222"),
		},
		{
			name: "empty bulletFields falls through to path",
			raw:  `{"bulletFields": [], "externalPath": "/job/City/Title_JR4032"}`,
			want: ptr("JR4032"),
		},
		{
			name: "path splits on last underscore",
			raw:  `{"externalPath": "/job/New_York/Senior_Analyst_R-00123"}`,
			want: ptr("R-00123"),
		},
		{
			name: "path without underscore uses last segment",
			raw:  `{"externalPath": "/job/City/JR5555/"}`,
			want: ptr("JR5555"),
		},
		{
			name: "path ending in underscore falls through to keys",
			raw:  `{"externalPath": "/job/City/Title_", "jobId": "J-9"}`,
			want: ptr("J-9"),
		},
		{
			name: "alternate keys probed in order",
			raw:  `{"requisitionId": "REQ-1", "postingId": "P-1"}`,
			want: ptr("P-1"),
		},
		{
			name: "numeric id coerced to string",
			raw:  `{"id": 4032}`,
			want: ptr("4032"),
		},
		{
			name: "empty and null keys skipped",
			raw:  `{"id": "", "jobId": null, "externalJobId": "EXT-7"}`,
			want: ptr("EXT-7"),
		},
		{
			name: "nothing resolvable",
			raw:  `{"title": "Analyst", "id": {"nested": true}, "bulletFields": "JR1"}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveID(decode(t, tt.raw))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ResolveID() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveIDGoValues(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
		want *string
	}{
		{name: "int", raw: Raw{"id": 4032}, want: ptr("4032")},
		{name: "int64", raw: Raw{"jobId": int64(77)}, want: ptr("77")},
		{name: "whole float", raw: Raw{"postingId": float64(12)}, want: ptr("12")},
		{name: "true", raw: Raw{"requisitionId": true}, want: ptr("true")},
		{name: "false is absent", raw: Raw{"id": false, "jobId": 5}, want: ptr("5")},
		{name: "struct rejected", raw: Raw{"id": struct{}{}}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ResolveID(tt.raw)); diff != "" {
				t.Errorf("ResolveID() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name string
		raw  string
		want Normalized
	}{
		{
			name: "Workday posting without bulletFields",
			raw: `{
				"title": "Sales Consultant",
				"externalPath": "/job/City/Title_JR4032",
				"locationsText": "Atlanta, GA",
				"postedOn": "Posted Today"
			}`,
			want: Normalized{
				ID:          ptr("JR4032"),
				Title:       "Sales Consultant",
				Location:    "Atlanta, GA",
				Posted:      "Posted Today",
				URL:         "https://pultegroup.wd1.myworkdayjobs.com/PGI/job/City/Title_JR4032",
				Source:      "Pultegroup",
				HarvestedAt: fixedNow,
			},
		},
		{
			name: "Fallback keys and location object",
			raw: `{
				"jobTitle": "  Land Manager ",
				"primaryLocation": {"name": "Phoenix, AZ"},
				"datePosted": "2024-04-30",
				"externalPath": "job/x"
			}`,
			want: Normalized{
				ID:          ptr("x"),
				Title:       "Land Manager",
				Location:    "Phoenix, AZ",
				Posted:      "2024-04-30",
				URL:         "https://pultegroup.wd1.myworkdayjobs.com/PGI/job/x",
				Source:      "Pultegroup",
				HarvestedAt: fixedNow,
			},
		},
		{
			name: "Empty record",
			raw:  `{}`,
			want: Normalized{
				Source:      "Pultegroup",
				HarvestedAt: fixedNow,
			},
		},
		{
			name: "Mistyped fields default to empty",
			raw:  `{"title": ["a"], "locationsText": {"x": 1}, "postedOn": false, "externalPath": 12}`,
			want: Normalized{
				Source:      "Pultegroup",
				HarvestedAt: fixedNow,
			},
		},
		{
			name: "Entities pass through verbatim",
			raw:  `{"title": "R&amp;D Lead", "location": "Remote"}`,
			want: Normalized{
				Title:       "R&amp;D Lead",
				Location:    "Remote",
				Source:      "Pultegroup",
				HarvestedAt: fixedNow,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Normalize(decode(t, tt.raw), "Pultegroup")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	r := newTestResolver()
	raw := `{"bulletFields": ["JR1"], "title": "A", "externalPath": "/job/a_JR1"}`

	first := r.Normalize(decode(t, raw), "Acme")
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, r.Normalize(decode(t, raw), "Acme")); diff != "" {
			t.Fatalf("Normalize() not deterministic (-first +got):\n%s", diff)
		}
	}
}

func TestNormalizedIDString(t *testing.T) {
	if got := (Normalized{}).IDString(); got != "" {
		t.Errorf("IDString() = %q, want empty", got)
	}
	n := Normalized{ID: ptr("JR1")}
	if !n.HasID() || n.IDString() != "JR1" {
		t.Errorf("HasID() = %v, IDString() = %q", n.HasID(), n.IDString())
	}
}
