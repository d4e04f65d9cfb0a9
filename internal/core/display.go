package core

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/janekbaraniewski/copilotspend/internal/billing"
)

// notAvailable matches errors for which manually entered figures are a
// reasonable stand-in.
var notAvailable = regexp.MustCompile(`(?i)not available|not found|404|enhanced billing|no usable billing data`)

// ManualFallback holds figures the user copied from the billing page.
type ManualFallback struct {
	Spent  *float64
	Budget *float64
}

func (m ManualFallback) Configured() bool { return m.Spent != nil }

// Display is what a status element renders for one snapshot.
type Display struct {
	Status      Status
	Text        string
	Spent       *float64
	Budget      *float64
	Percent     float64 // -1 when no positive budget is known
	BudgetLabel string
	Source      string
	AuthSource  string
	Breakdown   []billing.ProductAmount
	Manual      bool
	Stale       bool
	Error       string
	Guidance    string
	UpdatedAt   time.Time
}

// BuildDisplay turns a snapshot into renderable state. A snapshot with no
// result and no error means nothing has been fetched yet.
func BuildDisplay(s Snapshot, manual ManualFallback, th Thresholds) Display {
	if s.Err == nil && s.Result == nil {
		return Display{Status: StatusUnknown, Text: "loading...", Percent: -1}
	}

	if s.Err == nil {
		r := s.Result
		d := amounts(r.Spent, r.Budget, th)
		d.BudgetLabel = r.BudgetLabel
		d.Source = string(r.Source)
		d.AuthSource = s.AuthSource
		d.Breakdown = r.Breakdown
		d.UpdatedAt = r.FetchedAt
		return d
	}

	msg := s.Err.Error()
	if manual.Configured() && notAvailable.MatchString(msg) {
		d := amounts(*manual.Spent, manual.Budget, th)
		d.Text += " (manual)"
		d.Manual = true
		d.BudgetLabel = "manual"
		d.AuthSource = s.AuthSource
		d.Error = msg
		d.UpdatedAt = s.Timestamp
		return d
	}

	d := Display{
		Status:     failureStatus(s.Err),
		Text:       "billing unavailable",
		Percent:    -1,
		AuthSource: s.AuthSource,
		Error:      msg,
		Guidance:   billing.Guidance(s.Err),
		UpdatedAt:  s.Timestamp,
	}
	if p := s.Previous; p != nil {
		prev := amounts(p.Spent, p.Budget, th)
		d.Text = prev.Text + " (stale)"
		d.Spent = prev.Spent
		d.Budget = prev.Budget
		d.Percent = prev.Percent
		d.BudgetLabel = p.BudgetLabel
		d.Source = string(p.Source)
		d.Breakdown = p.Breakdown
		d.Stale = true
		d.UpdatedAt = p.FetchedAt
	}
	return d
}

func amounts(spent float64, budget *float64, th Thresholds) Display {
	d := Display{Spent: &spent, Budget: budget, Percent: -1}
	if budget == nil {
		d.Text = FormatUSD(spent) + " spent"
		d.Status = StatusOK
		return d
	}
	d.Text = FormatUSD(spent) + " / " + FormatUSD(*budget)
	if *budget > 0 {
		d.Percent = spent / *budget * 100
		d.Text += fmt.Sprintf(" (%.0f%%)", d.Percent)
	}
	d.Status = th.StatusFor(d.Percent)
	return d
}

func failureStatus(err error) Status {
	switch billing.StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return StatusAuth
	case http.StatusNotFound:
		return StatusUnsupported
	}
	if errors.Is(err, ErrNoCredentials) {
		return StatusAuth
	}
	return StatusError
}

func FormatUSD(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
