// Package billing normalizes GitHub billing responses into a single
// (spent, budget, breakdown) result.
//
// GitHub serves several incompatible shapes depending on account type,
// billing-platform migration status and endpoint version:
//
//	GET /organizations/{org}/settings/billing/premium_request/usage
//	GET /organizations/{org}/settings/billing/usage/summary
//	GET /organizations/{org}/settings/billing/usage
//	GET /organizations/{org}/settings/billing/budgets
//	GET /users/{login}/settings/billing/premium_request/usage
//
// The usage endpoints normally return {"usageItems": [...]} where each item
// carries product/sku/unitType text and an amount under one of several
// historical field names. Anything else goes through a best-effort tree walk.
package billing

import "time"

type Source string

const (
	SourceOrganization Source = "organization"
	SourceUser         Source = "user"
)

// ProductAmount is one breakdown row.
type ProductAmount struct {
	Product string  `json:"product"`
	Amount  float64 `json:"amount"`
}

// FetchResult is the normalized outcome of one billing fetch.
type FetchResult struct {
	Spent       float64         `json:"spent"`
	Budget      *float64        `json:"budget,omitempty"` // nil means unknown, not zero
	BudgetLabel string          `json:"budget_label,omitempty"`
	Source      Source          `json:"source"`
	Breakdown   []ProductAmount `json:"breakdown,omitempty"`
	Endpoint    string          `json:"endpoint,omitempty"`
	Login       string          `json:"login,omitempty"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// Percent returns spent as a percentage of budget, or -1 when no positive budget is known.
func (r FetchResult) Percent() float64 {
	if r.Budget == nil || *r.Budget <= 0 {
		return -1
	}
	return r.Spent / *r.Budget * 100
}

// AuthContext is everything one fetch needs to know about who is asking.
type AuthContext struct {
	Token      string
	Org        string // empty selects the personal account
	Filter     string
	AuthSource string
}

// Request is the input to Fetcher.Fetch.
type Request struct {
	Auth AuthContext
	// ManualBudget is the only budget source for personal accounts.
	ManualBudget *float64
}
