package budgetguard

// Meter observes budget events for monitoring/logging. All observations
// are best-effort: a meter must never block or fail the request path.
type Meter interface {
	// ObserveRemainingBudget is called during filtering for every
	// budget-checked provider with its remaining budget (limit - spend).
	ObserveRemainingBudget(provider string, remaining float64)

	// ObserveSpend is called when a completed request's cost is recorded.
	ObserveSpend(provider string, cost float64)

	// ObserveSync is called after each reconciliation cycle with the
	// number of keys pushed and pulled, or the error that aborted it.
	ObserveSync(pushed, pulled int, err error)
}

// noopMeter is the default when no meter is configured.
type noopMeter struct{}

var _ Meter = noopMeter{}

func (noopMeter) ObserveRemainingBudget(string, float64) {}
func (noopMeter) ObserveSpend(string, float64)           {}
func (noopMeter) ObserveSync(int, int, error)            {}
