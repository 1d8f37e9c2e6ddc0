package record

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Raw keys read from Workday job postings
const (
	keyBulletFields  = "bulletFields"
	keyExternalPath  = "externalPath"
	keyLocationsText = "locationsText"
)

var (
	// AlternateIDKeys are probed in order when neither bulletFields nor externalPath yield an id
	AlternateIDKeys = []string{"id", "jobId", "postingId", "requisitionId", "externalJobId"}

	titleKeys  = []string{"title", "jobTitle", "positionTitle", "name", "jobName"}
	postedKeys = []string{"postedOn", "postingDate", "datePosted", "createdDate", "publishedDate"}
	// location objects carry their display text under "name"
	locationObjectKeys = []string{"location", "primaryLocation"}
)

// idStrategy returns an identifier and true, or false when it found nothing
type idStrategy func(raw Raw) (string, bool)

// idStrategies is the identifier fallback chain, highest precedence first
var idStrategies = []idStrategy{
	idFromBulletFields,
	idFromExternalPath,
	idFromAlternateKeys,
}

// Resolver converts raw listings into normalized records
type Resolver struct {
	// BaseURL is prepended to each listing's externalPath
	BaseURL string

	// Now stamps HarvestedAt; time.Now when nil
	Now func() time.Time
}

// NewResolver creates a resolver building URLs under baseURL
func NewResolver(baseURL string) *Resolver {
	return &Resolver{BaseURL: baseURL, Now: time.Now}
}

// Normalize builds the output record for one raw listing.
// It never fails: missing or mistyped fields become "".
func (r *Resolver) Normalize(raw Raw, sourceLabel string) Normalized {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	return Normalized{
		ID:          ResolveID(raw),
		Title:       firstString(raw, titleKeys),
		Location:    location(raw),
		Posted:      firstString(raw, postedKeys),
		URL:         r.jobURL(raw),
		Source:      sourceLabel,
		HarvestedAt: now(),
	}
}

// ResolveID runs the identifier fallback chain.
// It returns nil when every strategy comes up empty.
func ResolveID(raw Raw) *string {
	for _, strategy := range idStrategies {
		if id, ok := strategy(raw); ok {
			return &id
		}
	}
	return nil
}

func idFromBulletFields(raw Raw) (string, bool) {
	fields, ok := raw[keyBulletFields].([]any)
	if !ok {
		return "", false
	}
	for _, f := range fields {
		if s, ok := f.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// idFromExternalPath reads the suffix of paths like /job/City/Title_JR4032.
// Paths without an underscore yield their last segment.
func idFromExternalPath(raw Raw) (string, bool) {
	p, ok := raw[keyExternalPath].(string)
	if !ok || p == "" {
		return "", false
	}

	var id string
	if i := strings.LastIndex(p, "_"); i >= 0 {
		id = p[i+1:]
	} else {
		segments := strings.Split(strings.Trim(p, "/"), "/")
		id = segments[len(segments)-1]
	}

	id = strings.TrimSpace(id)
	return id, id != ""
}

func idFromAlternateKeys(raw Raw) (string, bool) {
	s := firstString(raw, AlternateIDKeys)
	return s, s != ""
}

func location(raw Raw) string {
	if s, ok := stringValue(raw[keyLocationsText]); ok && s != "" {
		return s
	}
	for _, key := range locationObjectKeys {
		switch v := raw[key].(type) {
		case map[string]any:
			if s, ok := stringValue(v["name"]); ok && s != "" {
				return s
			}
		default:
			if s, ok := stringValue(v); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func (r *Resolver) jobURL(raw Raw) string {
	p, ok := raw[keyExternalPath].(string)
	if !ok || p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(r.BaseURL, "/") + p
}

// firstString returns the first key holding a non-empty scalar, as a string
func firstString(raw Raw, keys []string) string {
	for _, key := range keys {
		if s, ok := stringValue(raw[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringValue coerces JSON scalars to trimmed strings.
// false and null count as absent; objects and arrays are rejected.
func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case bool:
		if !t {
			return "", false
		}
		return strconv.FormatBool(t), true
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case map[string]any, []any:
		return "", false
	}

	// Go numeric values, from Raw maps built in code rather than decoded
	// with UseNumber
	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}
