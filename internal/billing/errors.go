package billing

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/janekbaraniewski/copilotspend/internal/githubapi"
)

var (
	// ErrNoUsageData means every candidate endpoint was tried without finding a total.
	ErrNoUsageData = errors.New("no usable billing data")
	// ErrIdentityUnknown means GET /user did not yield a login.
	ErrIdentityUnknown = errors.New("could not determine the authenticated GitHub user")
)

const (
	guidanceForbidden = "The token cannot read billing data. Use a fine-grained token with the " +
		"\"Plan\" (read) user permission, or a classic token with the \"user\" scope; " +
		"organization billing needs an org owner or billing manager."
	guidanceNotFound = "The billing endpoint was not found. Usage-based billing data is only " +
		"available on GitHub's enhanced billing platform; check the organization name, or " +
		"enter the figures from the billing page manually."
	guidanceGeneric = "Check the network or proxy settings and the token, then refresh."
)

// FetchError is a billing failure annotated with operator guidance.
type FetchError struct {
	Status   int
	Message  string
	Guidance string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Guidance returns operator advice for err, keyed by HTTP status.
func Guidance(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Guidance != "" {
		return fe.Guidance
	}
	switch StatusOf(err) {
	case http.StatusForbidden:
		return guidanceForbidden
	case http.StatusNotFound:
		return guidanceNotFound
	}
	if errors.Is(err, ErrNoUsageData) {
		return guidanceNotFound
	}
	return guidanceGeneric
}

// StatusOf extracts the HTTP status behind err, if any.
func StatusOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Status != 0 {
		return fe.Status
	}
	return githubapi.HTTPStatus(err)
}
