package meter

import "github.com/ineyio/budgetguard"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ budgetguard.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) ObserveRemainingBudget(string, float64) {}
func (m *NoopMeter) ObserveSpend(string, float64)           {}
func (m *NoopMeter) ObserveSync(int, int, error)            {}
