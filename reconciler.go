package budgetguard

import (
	"context"
	"log/slog"
	"time"
)

// reconciler keeps the local and shared tiers converged. Each cycle
// pushes the local spend accrued since the last cycle to the shared tier
// as a delta, then pulls the shared totals back into the local tier. The
// shared tier is authoritative for cross-instance visibility; the local
// tier is authoritative for nothing but speed.
//
// The watermark map records, per key, the last local value known to be
// reflected in the shared tier. It is owned exclusively by the run
// goroutine and is never persisted: after a restart the first cycle pulls
// before it pushes, re-baselining the watermarks from the shared totals
// so already-synced spend is not pushed twice. Spend recorded between
// process start and that first pull is folded into the pulled baseline;
// the loss is bounded by one interval and accepted.
type reconciler struct {
	budgets    map[string]providerBudget
	local      LocalStore
	shared     SharedStore
	meter      Meter
	logger     *slog.Logger
	interval   time.Duration
	timeout    time.Duration
	instanceID string

	watermarks map[string]float64
	baselined  bool
}

// run executes sync cycles until ctx is cancelled. A failed cycle is
// logged and retried next interval; the loop never terminates on error.
func (r *reconciler) run(ctx context.Context) {
	r.logger.Info("budgetguard: reconciler started",
		"instance_id", r.instanceID,
		"interval", r.interval,
		"keys", len(r.budgets),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.cycle(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("budgetguard: reconciler stopped", "instance_id", r.instanceID)
			return
		case <-ticker.C:
		}
	}
}

// cycle runs one push/pull round under the cycle timeout.
func (r *reconciler) cycle(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// First cycle after startup: pull before the first push so the
	// watermarks re-baseline from the shared totals.
	if !r.baselined {
		if _, err := r.pull(ctx); err != nil {
			r.fail(ctx, err)
			return
		}
		r.baselined = true
	}

	pushed, err := r.push(ctx)
	if err != nil {
		r.fail(ctx, err)
		return
	}

	pulled, err := r.pull(ctx)
	if err != nil {
		r.fail(ctx, err)
		return
	}

	r.meter.ObserveSync(pushed, pulled, nil)
	r.logger.DebugContext(ctx, "budgetguard: sync cycle complete",
		"instance_id", r.instanceID,
		"pushed", pushed,
		"pulled", pulled,
	)
}

// push sends positive local deltas to the shared tier and advances the
// watermarks. Non-positive deltas are skipped: local counters are
// monotonic within a window, so a non-positive delta implies a window
// reset and the fresh window carries its own key TTL.
func (r *reconciler) push(ctx context.Context) (int, error) {
	keys := make([]string, 0, len(r.budgets))
	for _, b := range r.budgets {
		keys = append(keys, b.key)
	}
	locals := r.local.BatchGet(keys)

	pushed := 0
	for _, b := range r.budgets {
		value, ok := locals[b.key]
		if !ok {
			continue
		}
		delta := value - r.watermarks[b.key]
		if delta <= 0 {
			continue
		}
		if _, err := r.shared.Increment(ctx, b.key, delta, b.ttl); err != nil {
			return pushed, err
		}
		r.watermarks[b.key] = value
		pushed++
	}
	return pushed, nil
}

// pull overwrites local values with the shared totals. The Set is a
// last-writer-wins refresh: an increment landing between the shared read
// and the local write can be transiently lost and reconverges on the
// next cycle, a documented approximation rather than a correctness bug.
// Watermarks advance to the pulled totals so spend contributed by other
// instances is never pushed back as if it were ours.
func (r *reconciler) pull(ctx context.Context) (int, error) {
	keys := make([]string, 0, len(r.budgets))
	for _, b := range r.budgets {
		keys = append(keys, b.key)
	}

	values, err := r.shared.BatchGet(ctx, keys)
	if err != nil {
		return 0, err
	}

	pulled := 0
	for _, b := range r.budgets {
		value, ok := values[b.key]
		if !ok {
			continue
		}
		r.local.Set(b.key, value, b.ttl)
		r.watermarks[b.key] = value
		pulled++
	}
	return pulled, nil
}

// fail records a skipped cycle. Sync errors stay inside the loop and
// never reach request-path callers.
func (r *reconciler) fail(ctx context.Context, err error) {
	r.meter.ObserveSync(0, 0, err)
	r.logger.WarnContext(ctx, "budgetguard: sync cycle failed, will retry",
		"instance_id", r.instanceID,
		"error", err,
	)
}
