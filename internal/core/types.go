package core

import (
	"time"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
)

type Status string

const (
	StatusOK          Status = "OK"
	StatusNearLimit   Status = "NEAR_LIMIT"
	StatusLimited     Status = "LIMITED"
	StatusAuth        Status = "AUTH_REQUIRED"
	StatusUnsupported Status = "UNSUPPORTED"
	StatusError       Status = "ERROR"
	StatusUnknown     Status = "UNKNOWN"
)

// Snapshot is the outcome of one refresh. Exactly one of Result and Err is set.
type Snapshot struct {
	Result     *billing.FetchResult `json:"result,omitempty"`
	Err        error                `json:"-"`
	AuthSource string               `json:"auth_source,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
	// Previous is the last successful result, carried on failed refreshes.
	Previous *billing.FetchResult `json:"previous,omitempty"`
}

func (s Snapshot) OK() bool { return s.Err == nil && s.Result != nil }

// Thresholds are fractions of the budget (0.75 = 75%).
type Thresholds struct {
	Warn float64
	Crit float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Warn: 0.75, Crit: 0.90}
}

// StatusFor maps a budget percentage (0-100, negative when unknown) to a status.
func (t Thresholds) StatusFor(percent float64) Status {
	switch {
	case percent < 0:
		return StatusOK
	case percent >= t.Crit*100:
		return StatusLimited
	case percent >= t.Warn*100:
		return StatusNearLimit
	default:
		return StatusOK
	}
}
