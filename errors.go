package budgetguard

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrMissingProvider means a completed request's provider could not be
	// resolved from its metadata. Spend must always be attributable, so
	// this is a caller bug rather than a transient condition.
	ErrMissingProvider = errors.New("budgetguard: provider missing from request result")

	// ErrNoBudgetForProvider means spend was recorded for a provider that
	// has no budget entry.
	ErrNoBudgetForProvider = errors.New("budgetguard: no budget configured for provider")

	// ErrNoDeploymentsInBudget means every candidate deployment was
	// rejected because its provider exhausted its budget.
	ErrNoDeploymentsInBudget = errors.New("budgetguard: no deployments within provider budget")
)

// ProviderSpend is one provider's spend standing against its limit.
type ProviderSpend struct {
	Provider string
	Spend    float64
	Limit    float64
}

// ExhaustedError reports that the filter rejected every candidate. It
// carries a per-provider diagnostic so the outer routing layer can report
// or fall back.
type ExhaustedError struct {
	Exceeded []ProviderSpend
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString(ErrNoDeploymentsInBudget.Error())
	for _, p := range e.Exceeded {
		fmt.Fprintf(&b, "; exceeded budget for provider %s: %g >= %g", p.Provider, p.Spend, p.Limit)
	}
	return b.String()
}

func (e *ExhaustedError) Unwrap() error {
	return ErrNoDeploymentsInBudget
}
