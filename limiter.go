// Package budgetguard enforces per-provider spend ceilings for a
// multi-instance LLM request router.
//
// Spend is tracked in a two-tier cache: a fast in-process tier read on
// every routing decision, and an optional shared tier (Redis or Postgres)
// that makes spend visible across router instances. A background
// reconciler periodically pushes local spend deltas to the shared tier
// and pulls the authoritative totals back, bounding cross-instance
// staleness to roughly one sync interval. This is a deliberate
// eventual-consistency design: admission checks never wait on the network.
package budgetguard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Defaults for reconciliation cadence.
const (
	DefaultSyncInterval = 60 * time.Second
	DefaultSyncTimeout  = 10 * time.Second
)

// Limiter filters candidate deployments by provider budget and records
// per-request spend. Filter and RecordSpend touch only the local tier and
// are safe for concurrent use; the shared tier is synchronized by a
// background reconciler started with Start.
type Limiter struct {
	budgets  map[string]providerBudget
	local    LocalStore
	shared   SharedStore
	resolver ProviderResolver
	meter    Meter
	logger   *slog.Logger

	syncInterval time.Duration
	syncTimeout  time.Duration
	instanceID   string

	cancel context.CancelFunc
	done   chan struct{}
}

// providerBudget is a validated budget entry with its derived spend key
// and window TTL precomputed.
type providerBudget struct {
	limit  float64
	period string
	key    string
	ttl    time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLocalStore sets the local cache tier (default: NewMemoryStore).
func WithLocalStore(s LocalStore) Option {
	return func(l *Limiter) { l.local = s }
}

// WithSharedStore sets the shared cache tier. Without one the limiter
// runs local-only and Start is a no-op.
func WithSharedStore(s SharedStore) Option {
	return func(l *Limiter) { l.shared = s }
}

// WithResolver sets the provider resolver (default: PrefixResolver).
func WithResolver(r ProviderResolver) Option {
	return func(l *Limiter) { l.resolver = r }
}

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(l *Limiter) { l.meter = m }
}

// WithLogger sets the logger (default: slog.Default).
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithSyncInterval sets the reconciliation interval (default 60s).
func WithSyncInterval(d time.Duration) Option {
	return func(l *Limiter) { l.syncInterval = d }
}

// WithSyncTimeout bounds the shared-tier calls of a single reconciliation
// cycle (default 10s) so one stuck cycle cannot starve the next.
func WithSyncTimeout(d time.Duration) Option {
	return func(l *Limiter) { l.syncTimeout = d }
}

// New creates a Limiter for the given budget config. The config is
// validated up front; an invalid entry is a constructor error, not a
// runtime condition. Default components are used unless overridden via
// options.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	budgets := make(map[string]providerBudget, len(cfg))
	for provider, b := range cfg {
		ttl, _ := ParsePeriod(b.Period) // validated above
		budgets[provider] = providerBudget{
			limit:  b.Limit,
			period: b.Period,
			key:    SpendKey(provider, b.Period),
			ttl:    ttl,
		}
	}

	l := &Limiter{
		budgets:      budgets,
		syncInterval: DefaultSyncInterval,
		syncTimeout:  DefaultSyncTimeout,
		instanceID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(l)
	}

	// Apply defaults after options.
	if l.local == nil {
		l.local = NewMemoryStore()
	}
	if l.resolver == nil {
		l.resolver = PrefixResolver{}
	}
	if l.meter == nil {
		l.meter = noopMeter{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l, nil
}

// Start launches the background reconciler. It is a no-op when no shared
// store is configured (local-only operation) or when already started.
// The reconciler runs until ctx is cancelled or Close is called.
func (l *Limiter) Start(ctx context.Context) {
	if l.shared == nil {
		l.logger.Info("budgetguard: no shared store configured, running local-only")
		return
	}
	if l.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})

	r := &reconciler{
		budgets:    l.budgets,
		local:      l.local,
		shared:     l.shared,
		meter:      l.meter,
		logger:     l.logger,
		interval:   l.syncInterval,
		timeout:    l.syncTimeout,
		instanceID: l.instanceID,
		watermarks: make(map[string]float64),
	}

	go func() {
		defer close(l.done)
		r.run(ctx)
	}()
}

// Close stops the reconciler and waits for its current cycle to finish.
// Safe to call when Start was never called.
func (l *Limiter) Close() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}
