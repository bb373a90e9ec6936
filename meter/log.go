package meter

import (
	"log/slog"

	"github.com/ineyio/budgetguard"
)

// LogMeter logs budget events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ budgetguard.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) ObserveRemainingBudget(provider string, remaining float64) {
	m.Logger.Info("remaining_budget",
		"provider", provider,
		"remaining", remaining,
	)
}

func (m *LogMeter) ObserveSpend(provider string, cost float64) {
	m.Logger.Info("spend",
		"provider", provider,
		"cost", cost,
	)
}

func (m *LogMeter) ObserveSync(pushed, pulled int, err error) {
	if err != nil {
		m.Logger.Warn("sync_error", "error", err)
		return
	}
	m.Logger.Info("sync",
		"pushed", pushed,
		"pulled", pulled,
	)
}
