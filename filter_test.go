package budgetguard_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bg "github.com/ineyio/budgetguard"
)

// recordingMeter captures observations for assertions.
type recordingMeter struct {
	mu        sync.Mutex
	remaining map[string]float64
	spend     map[string]float64
	syncErrs  int
	syncOKs   int
}

var _ bg.Meter = (*recordingMeter)(nil)

func newRecordingMeter() *recordingMeter {
	return &recordingMeter{
		remaining: make(map[string]float64),
		spend:     make(map[string]float64),
	}
}

func (m *recordingMeter) ObserveRemainingBudget(provider string, remaining float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining[provider] = remaining
}

func (m *recordingMeter) ObserveSpend(provider string, cost float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spend[provider] += cost
}

func (m *recordingMeter) ObserveSync(pushed, pulled int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.syncErrs++
	} else {
		m.syncOKs++
	}
}

// countingStore wraps a LocalStore and counts BatchGet round trips.
type countingStore struct {
	bg.LocalStore
	batchGets int
}

func (s *countingStore) BatchGet(keys []string) map[string]float64 {
	s.batchGets++
	return s.LocalStore.BatchGet(keys)
}

func newTestLimiter(t *testing.T, cfg bg.Config, opts ...bg.Option) (*bg.Limiter, *bg.MemoryStore) {
	t.Helper()
	local := bg.NewMemoryStore()
	l, err := bg.New(cfg, append([]bg.Option{bg.WithLocalStore(local)}, opts...)...)
	require.NoError(t, err)
	return l, local
}

// Test 1: empty input is the identity.
func TestFilter_EmptyInput(t *testing.T) {
	l, _ := newTestLimiter(t, bg.Config{"openai": {Limit: 100, Period: "1d"}})

	got, err := l.Filter(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Test 2: providers without a budget entry pass through unchanged.
func TestFilter_UnbudgetedProvidersPass(t *testing.T) {
	l, _ := newTestLimiter(t, bg.Config{"openai": {Limit: 100, Period: "1d"}})

	deployments := []bg.Deployment{
		{ID: "a", Model: "groq/llama-3.3-70b"},
		{ID: "b", Model: "mistral/mistral-large"},
	}
	got, err := l.Filter(context.Background(), deployments)
	require.NoError(t, err)
	assert.Equal(t, deployments, got)
}

// Test 3: unresolvable providers are treated as unconstrained (fail-open).
func TestFilter_UnresolvedProviderPasses(t *testing.T) {
	l, local := newTestLimiter(t, bg.Config{"openai": {Limit: 100, Period: "1d"}})
	local.Set(bg.SpendKey("openai", "1d"), 500, 0)

	got, err := l.Filter(context.Background(), []bg.Deployment{
		{ID: "a", Model: "bare-model-name"}, // no provider prefix, no Provider field
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

// Test 4: under-budget providers keep every one of their deployments.
func TestFilter_UnderBudgetAccepted(t *testing.T) {
	l, local := newTestLimiter(t, bg.Config{"openai": {Limit: 100, Period: "1d"}})
	local.Set(bg.SpendKey("openai", "1d"), 99.99, 0)

	got, err := l.Filter(context.Background(), []bg.Deployment{
		{ID: "a", Model: "openai/gpt-4o"},
		{ID: "b", Model: "openai/gpt-4o-mini"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// Test 5: spend equal to the limit is already exhausted.
func TestFilter_SpendAtLimitRejected(t *testing.T) {
	l, local := newTestLimiter(t, bg.Config{
		"openai":    {Limit: 100, Period: "1d"},
		"anthropic": {Limit: 50, Period: "7d"},
	})
	local.Set(bg.SpendKey("openai", "1d"), 100, 0)

	got, err := l.Filter(context.Background(), []bg.Deployment{
		{ID: "a", Model: "openai/gpt-4o"},
		{ID: "b", Model: "anthropic/claude-sonnet-4-5"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

// Test 6: all candidates over budget fails with a per-provider diagnostic.
func TestFilter_AllExhausted(t *testing.T) {
	l, local := newTestLimiter(t, bg.Config{
		"openai":    {Limit: 100, Period: "1d"},
		"anthropic": {Limit: 50, Period: "7d"},
	})
	local.Set(bg.SpendKey("openai", "1d"), 150, 0)
	local.Set(bg.SpendKey("anthropic", "7d"), 50, 0)

	_, err := l.Filter(context.Background(), []bg.Deployment{
		{ID: "a", Model: "openai/gpt-4o"},
		{ID: "b", Model: "anthropic/claude-sonnet-4-5"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bg.ErrNoDeploymentsInBudget)

	var exhausted *bg.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Exceeded, 2)
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), ">=")
}

// Test 7: missing spend keys count as zero spend.
func TestFilter_NoSpendYetAccepted(t *testing.T) {
	l, _ := newTestLimiter(t, bg.Config{"openai": {Limit: 0.01, Period: "1d"}})

	got, err := l.Filter(context.Background(), []bg.Deployment{
		{ID: "a", Model: "openai/gpt-4o"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// Test 8: one batched read per filter call regardless of candidate count.
func TestFilter_SingleBatchedRead(t *testing.T) {
	counting := &countingStore{LocalStore: bg.NewMemoryStore()}
	l, err := bg.New(bg.Config{
		"openai":    {Limit: 100, Period: "1d"},
		"anthropic": {Limit: 50, Period: "7d"},
	}, bg.WithLocalStore(counting))
	require.NoError(t, err)

	deployments := make([]bg.Deployment, 0, 20)
	for i := 0; i < 10; i++ {
		deployments = append(deployments,
			bg.Deployment{ID: "o", Model: "openai/gpt-4o"},
			bg.Deployment{ID: "a", Model: "anthropic/claude-sonnet-4-5"},
		)
	}

	_, err = l.Filter(context.Background(), deployments)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.batchGets)
}

// Test 9: remaining budget is observed for every checked provider.
func TestFilter_ObservesRemainingBudget(t *testing.T) {
	m := newRecordingMeter()
	l, local := newTestLimiter(t, bg.Config{
		"openai": {Limit: 100, Period: "1d"},
	}, bg.WithMeter(m))
	local.Set(bg.SpendKey("openai", "1d"), 30, 0)

	_, err := l.Filter(context.Background(), []bg.Deployment{
		{ID: "a", Model: "openai/gpt-4o"},
	})
	require.NoError(t, err)
	assert.Equal(t, 70.0, m.remaining["openai"])
}

// Test 10: explicit Provider field wins over the model prefix.
func TestFilter_ExplicitProviderField(t *testing.T) {
	l, local := newTestLimiter(t, bg.Config{"azure": {Limit: 10, Period: "1d"}})
	local.Set(bg.SpendKey("azure", "1d"), 10, 0)

	_, err := l.Filter(context.Background(), []bg.Deployment{
		{ID: "a", Provider: "azure", Model: "gpt-4o"},
	})
	assert.ErrorIs(t, err, bg.ErrNoDeploymentsInBudget)
}
