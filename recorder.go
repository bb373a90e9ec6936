package budgetguard

import (
	"context"
	"fmt"
)

// RecordSpend attributes a completed request's measured cost to its
// provider by atomically incrementing the local tier. The shared tier is
// deliberately not written here: durability is handled out-of-band by the
// reconciler, keeping this call off the network.
//
// A cost of zero is valid and still establishes the spend window. Returns
// ErrMissingProvider when the provider cannot be resolved from the result
// metadata and ErrNoBudgetForProvider when it has no budget entry; both
// are caller bugs and must not be silently swallowed.
func (l *Limiter) RecordSpend(ctx context.Context, res RequestResult) error {
	provider, ok := l.resolver.ResolveResult(res)
	if !ok {
		return ErrMissingProvider
	}

	b, ok := l.budgets[provider]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoBudgetForProvider, provider)
	}

	total := l.local.Increment(b.key, res.Cost, b.ttl)
	l.meter.ObserveSpend(provider, res.Cost)
	l.logger.DebugContext(ctx, "recorded spend",
		"provider", provider,
		"request_id", res.RequestID,
		"cost", res.Cost,
		"window_total", total,
	)
	return nil
}
