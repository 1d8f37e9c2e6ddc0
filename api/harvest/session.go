package harvest

import (
	"time"

	"github.com/ka2n/jobharvest/api/record"
	"github.com/samber/lo"
)

// State is the harvest state machine position
type State int

const (
	Running State = iota
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Done:
		return "DONE"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session accumulates one harvest run. It is owned by Run and never shared.
type Session struct {
	Endpoint     string
	Offset       int
	Collected    []record.Normalized
	AttemptCount int
	State        State

	pages         int
	declaredTotal *int
	capReached    bool
	abortReason   string
	startedAt     time.Time
}

// Metrics summarizes a finished harvest
type Metrics struct {
	State         State         `json:"state"`
	TotalRecords  int           `json:"total_records"`
	RecordsWithID int           `json:"records_with_id"`
	PagesFetched  int           `json:"pages_fetched"`
	Attempts      int           `json:"attempts"`
	Elapsed       time.Duration `json:"elapsed"`
	Aborted       bool          `json:"aborted"`
	AbortReason   string        `json:"abort_reason,omitempty"`
	CapReached    bool          `json:"cap_reached"`
	DeclaredTotal *int          `json:"declared_total,omitempty"`
}

// IDCompleteness is the share of records with a resolved id, in percent
func (m Metrics) IDCompleteness() float64 {
	if m.TotalRecords == 0 {
		return 0
	}
	return float64(m.RecordsWithID) / float64(m.TotalRecords) * 100
}

// Result is the outcome of Run. Records are valid even when the run aborted.
type Result struct {
	Records []record.Normalized
	Metrics Metrics
}

func (s *Session) metrics(now time.Time) Metrics {
	return Metrics{
		State:         s.State,
		TotalRecords:  len(s.Collected),
		RecordsWithID: lo.CountBy(s.Collected, record.Normalized.HasID),
		PagesFetched:  s.pages,
		Attempts:      s.AttemptCount,
		Elapsed:       now.Sub(s.startedAt),
		Aborted:       s.State == Aborted,
		AbortReason:   s.abortReason,
		CapReached:    s.capReached,
		DeclaredTotal: s.declaredTotal,
	}
}
