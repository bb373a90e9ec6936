package budgetguard

import "context"

// Filter returns the subset of deployments whose provider is still within
// its budget. Deployments whose provider cannot be resolved or has no
// budget entry pass through unchecked (fail-open: availability is chosen
// over strictness). Spend is read from the local tier in one batched call
// per distinct budgeted provider, never per candidate.
//
// When every deployment is rejected, Filter fails with an *ExhaustedError
// listing each over-budget provider. An empty input is returned unchanged.
func (l *Limiter) Filter(ctx context.Context, deployments []Deployment) ([]Deployment, error) {
	if len(deployments) == 0 {
		return deployments, nil
	}

	// Distinct budgeted providers present among the candidates.
	checked := make(map[string]providerBudget)
	for _, d := range deployments {
		provider, ok := l.resolver.ResolveDeployment(d)
		if !ok {
			continue
		}
		if b, ok := l.budgets[provider]; ok {
			checked[provider] = b
		}
	}
	if len(checked) == 0 {
		return deployments, nil
	}

	keys := make([]string, 0, len(checked))
	for _, b := range checked {
		keys = append(keys, b.key)
	}
	spends := l.local.BatchGet(keys)

	for provider, b := range checked {
		l.meter.ObserveRemainingBudget(provider, b.limit-spends[b.key])
	}

	accepted := make([]Deployment, 0, len(deployments))
	var exceeded []ProviderSpend
	rejected := make(map[string]bool)

	for _, d := range deployments {
		provider, ok := l.resolver.ResolveDeployment(d)
		if !ok {
			accepted = append(accepted, d)
			continue
		}
		b, ok := checked[provider]
		if !ok {
			accepted = append(accepted, d)
			continue
		}

		// Spend equal to the limit is already exhausted.
		spend := spends[b.key]
		if spend >= b.limit {
			if !rejected[provider] {
				rejected[provider] = true
				exceeded = append(exceeded, ProviderSpend{Provider: provider, Spend: spend, Limit: b.limit})
			}
			l.logger.DebugContext(ctx, "deployment over provider budget",
				"deployment", d.ID,
				"provider", provider,
				"spend", spend,
				"limit", b.limit,
			)
			continue
		}
		accepted = append(accepted, d)
	}

	if len(accepted) == 0 {
		return nil, &ExhaustedError{Exceeded: exceeded}
	}
	return accepted, nil
}
