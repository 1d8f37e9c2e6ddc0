package source

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrorCode defines error types for source detection
type ErrorCode string

const (
	// ErrInvalidSourceURL represents a site URL that no endpoint can be derived from
	ErrInvalidSourceURL ErrorCode = "InvalidSourceURL"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

// Site describes a Workday-hosted careers site
type Site struct {
	// Scheme is the URL scheme, "https" unless the input said otherwise
	Scheme string

	// Domain is the host serving both the careers site and its API
	Domain string

	// Company is the tenant name used in the API path
	Company string

	// Version is the Workday data center number (the N in wdN)
	Version string

	// SiteID is the careers site name used in the API path
	SiteID string
}

// Endpoint returns the paginated jobs API URL for the site
func (s Site) Endpoint() string {
	return fmt.Sprintf("%s/wday/cxs/%s/%s/jobs", s.Origin(), s.Company, s.SiteID)
}

// Origin returns scheme://domain
func (s Site) Origin() string {
	return fmt.Sprintf("%s://%s", s.Scheme, s.Domain)
}

// BaseURL is the browser-facing URL that job paths are appended to
func (s Site) BaseURL() string {
	return fmt.Sprintf("%s/%s", s.Origin(), s.SiteID)
}

// Label is the human readable company name written to the company column
func (s Site) Label() string {
	return cases.Title(language.Und).String(s.Company)
}

func (s Site) String() string {
	return s.BaseURL()
}
