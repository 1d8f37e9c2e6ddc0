package source

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/morikuni/failure/v2"
)

var (
	// myworkdayjobs.com hosts encode the tenant and data center: {company}.wd{N}.myworkdayjobs.com
	workdayHostPattern = regexp.MustCompile(`^([^.]+)\.wd(\d+)\.myworkdayjobs\.com$`)

	// localePattern matches an optional locale prefix such as /en-US/ before the site name
	localePattern = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)
)

const defaultSiteID = "careers"

// ParseURL derives the Workday site from a careers site URL.
//
// Example: https://pultegroup.wd1.myworkdayjobs.com/PGI
// -> company "pultegroup", version "1", site "PGI".
// Hosts outside myworkdayjobs.com fall back to the first host label as the
// company and the first path segment (or "careers") as the site.
func ParseURL(rawURL string) (Site, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return Site{}, failure.New(ErrInvalidSourceURL,
			failure.Message("Site URL is empty"),
		)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Site{}, failure.Wrap(err, failure.WithCode(ErrInvalidSourceURL),
			failure.Message("Site URL cannot be parsed"),
			failure.Context{"url": rawURL},
		)
	}
	if u.Host == "" {
		return Site{}, failure.New(ErrInvalidSourceURL,
			failure.Message("Site URL has no host"),
			failure.Context{"url": rawURL},
		)
	}

	site := Site{
		Scheme:  u.Scheme,
		Domain:  u.Host,
		Version: "1",
		SiteID:  siteFromPath(u.Path),
	}

	if m := workdayHostPattern.FindStringSubmatch(strings.ToLower(u.Hostname())); m != nil {
		site.Company = m[1]
		site.Version = m[2]
	} else {
		site.Company = strings.Split(u.Hostname(), ".")[0]
	}

	return site, nil
}

func siteFromPath(p string) string {
	segments := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if len(segments) > 0 && localePattern.MatchString(segments[0]) {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return defaultSiteID
	}
	return segments[0]
}
