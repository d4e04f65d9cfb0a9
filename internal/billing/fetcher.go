package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/janekbaraniewski/copilotspend/internal/githubapi"
	"github.com/janekbaraniewski/copilotspend/internal/metrics"
	"github.com/janekbaraniewski/copilotspend/internal/parsers"
)

// Getter issues one authenticated GET. githubapi.Client implements it.
type Getter interface {
	Get(ctx context.Context, token, path string) (parsers.Value, error)
}

type usageEndpoint struct {
	name       string
	pattern    string
	includeAll bool
}

// orgUsageEndpoints are tried in order until one yields a total.
var orgUsageEndpoints = []usageEndpoint{
	{name: "premium_request", pattern: "/organizations/%s/settings/billing/premium_request/usage", includeAll: true},
	{name: "summary", pattern: "/organizations/%s/settings/billing/usage/summary"},
	{name: "usage", pattern: "/organizations/%s/settings/billing/usage"},
}

const (
	orgBudgetsPattern = "/organizations/%s/settings/billing/budgets"
	userUsagePattern  = "/users/%s/settings/billing/premium_request/usage"
	identityPath      = "/user"

	manualBudgetLabel = "manual"
)

type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// Fetcher sequences the billing requests for one refresh.
type Fetcher struct {
	api     Getter
	logger  *zap.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewFetcher(api Getter, opts Options) *Fetcher {
	f := &Fetcher{
		api:     api,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Fetch resolves spend and budget for the organization in req, or for the
// token's own account when no organization is configured.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (FetchResult, error) {
	start := time.Now()
	org := strings.TrimSpace(req.Auth.Org)

	var (
		result FetchResult
		err    error
		source = SourceUser
	)
	if org != "" {
		source = SourceOrganization
		result, err = f.fetchOrganization(ctx, req.Auth, org)
	} else {
		result, err = f.fetchUser(ctx, req)
	}

	elapsed := time.Since(start)
	if err != nil {
		f.metrics.ObserveFetch(string(source), "error", elapsed)
		f.logger.Warn("billing fetch failed",
			zap.String("source", string(source)),
			zap.String("org", org),
			zap.Int("status", StatusOf(err)),
			zap.Error(err),
		)
		return FetchResult{}, err
	}

	result.FetchedAt = f.now()
	f.metrics.ObserveFetch(string(source), "ok", elapsed)
	f.metrics.SetSpend(string(source), result.Spent, result.Budget)
	f.logger.Info("billing fetch complete",
		zap.String("source", string(source)),
		zap.String("endpoint", result.Endpoint),
		zap.Float64("spent", result.Spent),
		zap.Bool("budget_known", result.Budget != nil),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (f *Fetcher) fetchOrganization(ctx context.Context, auth AuthContext, org string) (FetchResult, error) {
	escaped := url.PathEscape(org)

	for _, ep := range orgUsageEndpoints {
		path := fmt.Sprintf(ep.pattern, escaped)
		payload, err := f.api.Get(ctx, auth.Token, path)
		if err != nil {
			if githubapi.IsStatus(err, http.StatusForbidden, http.StatusNotFound) {
				f.metrics.ObserveEndpoint(ep.name, statusResult(err))
				f.logger.Debug("billing endpoint unavailable, trying next",
					zap.String("endpoint", ep.name),
					zap.Int("status", githubapi.HTTPStatus(err)),
				)
				continue
			}
			f.metrics.ObserveEndpoint(ep.name, "error")
			return FetchResult{}, fmt.Errorf("billing: organization %q %s usage: %w", org, ep.name, err)
		}

		ext, ok := extractTotal(payload, ExtractOptions{IncludeAll: ep.includeAll, Filter: auth.Filter})
		if !ok {
			f.metrics.ObserveEndpoint(ep.name, "no_data")
			f.logger.Debug("billing endpoint returned no usable total", zap.String("endpoint", ep.name))
			continue
		}
		f.metrics.ObserveEndpoint(ep.name, "ok")

		budget, err := f.fetchOrgBudget(ctx, auth, org, escaped)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{
			Spent:       *ext.Total,
			Budget:      budget.Amount,
			BudgetLabel: budget.Label,
			Source:      SourceOrganization,
			Breakdown:   ext.Breakdown,
			Endpoint:    ep.name,
		}, nil
	}

	return FetchResult{}, fmt.Errorf("billing: organization %q: %w", org, ErrNoUsageData)
}

func (f *Fetcher) fetchOrgBudget(ctx context.Context, auth AuthContext, org, escaped string) (Budget, error) {
	payload, err := f.api.Get(ctx, auth.Token, fmt.Sprintf(orgBudgetsPattern, escaped))
	if err != nil {
		if githubapi.IsStatus(err, http.StatusForbidden, http.StatusNotFound) {
			f.metrics.ObserveEndpoint("budgets", statusResult(err))
			return Budget{}, nil
		}
		f.metrics.ObserveEndpoint("budgets", "error")
		return Budget{}, fmt.Errorf("billing: organization %q budgets: %w", org, err)
	}
	f.metrics.ObserveEndpoint("budgets", "ok")
	return ExtractBudget(payload, auth.Filter), nil
}

func (f *Fetcher) fetchUser(ctx context.Context, req Request) (FetchResult, error) {
	auth := req.Auth
	login := f.lookupLogin(ctx, auth.Token)
	if login == "" {
		return FetchResult{}, fmt.Errorf("billing: %w", ErrIdentityUnknown)
	}

	payload, err := f.api.Get(ctx, auth.Token, fmt.Sprintf(userUsagePattern, url.PathEscape(login)))
	if err != nil {
		switch githubapi.HTTPStatus(err) {
		case http.StatusForbidden:
			f.metrics.ObserveEndpoint("user_premium_request", "forbidden")
			return FetchResult{}, &FetchError{
				Status:   http.StatusForbidden,
				Message:  fmt.Sprintf("billing: access to billing data for %s was denied", login),
				Guidance: guidanceForbidden,
				Err:      err,
			}
		case http.StatusNotFound:
			f.metrics.ObserveEndpoint("user_premium_request", "not_found")
			return FetchResult{}, &FetchError{
				Status:   http.StatusNotFound,
				Message:  fmt.Sprintf("billing: premium request usage is not available for %s", login),
				Guidance: guidanceNotFound,
				Err:      err,
			}
		}
		f.metrics.ObserveEndpoint("user_premium_request", "error")
		return FetchResult{}, fmt.Errorf("billing: user %q usage: %w", login, err)
	}

	ext, ok := extractTotal(payload, ExtractOptions{IncludeAll: true, Filter: auth.Filter})
	if !ok {
		f.metrics.ObserveEndpoint("user_premium_request", "no_data")
		return FetchResult{}, fmt.Errorf("billing: user %q: %w", login, ErrNoUsageData)
	}
	f.metrics.ObserveEndpoint("user_premium_request", "ok")

	result := FetchResult{
		Spent:     *ext.Total,
		Source:    SourceUser,
		Breakdown: ext.Breakdown,
		Endpoint:  "user_premium_request",
		Login:     login,
	}
	// Personal accounts have no budgets endpoint.
	if req.ManualBudget != nil {
		budget := *req.ManualBudget
		result.Budget = &budget
		result.BudgetLabel = manualBudgetLabel
	}
	return result, nil
}

// lookupLogin degrades any failure to an empty login.
func (f *Fetcher) lookupLogin(ctx context.Context, token string) string {
	payload, err := f.api.Get(ctx, token, identityPath)
	if err != nil {
		f.logger.Warn("identity lookup failed", zap.Error(err))
		return ""
	}
	return payload.TextField("login")
}

func extractTotal(payload parsers.Value, opts ExtractOptions) (Extraction, bool) {
	ext := ExtractUsage(payload, opts)
	if ext.Total != nil {
		return ext, true
	}
	total := ExtractFallback(payload, opts.Filter)
	if total == nil {
		return Extraction{}, false
	}
	spent := max(*total, 0)
	return Extraction{Total: &spent}, true
}

func statusResult(err error) string {
	if githubapi.HTTPStatus(err) == http.StatusForbidden {
		return "forbidden"
	}
	return "not_found"
}
