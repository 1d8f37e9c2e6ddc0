package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/morikuni/failure/v2"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		want         Site
		wantEndpoint string
		wantBaseURL  string
	}{
		{
			name: "Workday site URL",
			url:  "https://pultegroup.wd1.myworkdayjobs.com/PGI",
			want: Site{
				Scheme:  "https",
				Domain:  "pultegroup.wd1.myworkdayjobs.com",
				Company: "pultegroup",
				Version: "1",
				SiteID:  "PGI",
			},
			wantEndpoint: "https://pultegroup.wd1.myworkdayjobs.com/wday/cxs/pultegroup/PGI/jobs",
			wantBaseURL:  "https://pultegroup.wd1.myworkdayjobs.com/PGI",
		},
		{
			name: "Locale prefix and trailing path",
			url:  "https://acme.wd5.myworkdayjobs.com/en-US/External/details/foo",
			want: Site{
				Scheme:  "https",
				Domain:  "acme.wd5.myworkdayjobs.com",
				Company: "acme",
				Version: "5",
				SiteID:  "External",
			},
			wantEndpoint: "https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/jobs",
			wantBaseURL:  "https://acme.wd5.myworkdayjobs.com/External",
		},
		{
			name: "No scheme",
			url:  "acme.wd3.myworkdayjobs.com/Careers?q=1",
			want: Site{
				Scheme:  "https",
				Domain:  "acme.wd3.myworkdayjobs.com",
				Company: "acme",
				Version: "3",
				SiteID:  "Careers",
			},
			wantEndpoint: "https://acme.wd3.myworkdayjobs.com/wday/cxs/acme/Careers/jobs",
			wantBaseURL:  "https://acme.wd3.myworkdayjobs.com/Careers",
		},
		{
			name: "Fallback host without site",
			url:  "http://jobs.example.com",
			want: Site{
				Scheme:  "http",
				Domain:  "jobs.example.com",
				Company: "jobs",
				Version: "1",
				SiteID:  "careers",
			},
			wantEndpoint: "http://jobs.example.com/wday/cxs/jobs/careers/jobs",
			wantBaseURL:  "http://jobs.example.com/careers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			if err != nil {
				t.Fatalf("ParseURL() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseURL() mismatch (-want +got):\n%s", diff)
			}
			if e := got.Endpoint(); e != tt.wantEndpoint {
				t.Errorf("Endpoint() = %v, want %v", e, tt.wantEndpoint)
			}
			if b := got.BaseURL(); b != tt.wantBaseURL {
				t.Errorf("BaseURL() = %v, want %v", b, tt.wantBaseURL)
			}
		})
	}
}

func TestParseURLInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "https://", "http://%zz"} {
		_, err := ParseURL(in)
		if !failure.Is(err, ErrInvalidSourceURL) {
			t.Errorf("ParseURL(%q) error = %v, want %v", in, err, ErrInvalidSourceURL)
		}
	}
}

func TestSiteLabel(t *testing.T) {
	tests := map[string]string{
		"pultegroup": "Pultegroup",
		"ACME":       "Acme",
	}
	for company, want := range tests {
		if got := (Site{Company: company}).Label(); got != want {
			t.Errorf("Label(%q) = %q, want %q", company, got, want)
		}
	}
}
