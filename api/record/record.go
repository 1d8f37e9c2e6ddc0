package record

import "time"

// Raw is one listing object as decoded from the source API.
// Nothing about its keys or value types is guaranteed.
type Raw map[string]any

// Normalized is a listing in the fixed output schema
type Normalized struct {
	// ID is nil when no identifier could be resolved
	ID          *string   `json:"job_id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Posted      string    `json:"posting_date"`
	URL         string    `json:"url"`
	Source      string    `json:"company"`
	HarvestedAt time.Time `json:"scraped_at"`
}

// HasID reports whether an identifier was resolved
func (n Normalized) HasID() bool {
	return n.ID != nil
}

// IDString returns the identifier or "" when unresolved
func (n Normalized) IDString() string {
	if n.ID == nil {
		return ""
	}
	return *n.ID
}
