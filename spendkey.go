package budgetguard

import (
	"fmt"
	"strconv"
	"time"
)

const spendKeyPrefix = "provider_spend:"

// SpendKey returns the cache key holding a provider's accrued spend for
// the given time period. The same provider and period always yield the
// same key, and the key is used verbatim in both cache tiers.
func SpendKey(provider, period string) string {
	return spendKeyPrefix + provider + ":" + period
}

// ParsePeriod converts a time period string like "30s", "5m", "12h", "1d"
// or "7d" into a duration. Supported unit suffixes are s, m, h, d (24h)
// and w (7d). The result must be positive.
func ParsePeriod(period string) (time.Duration, error) {
	if len(period) < 2 {
		return 0, fmt.Errorf("budgetguard: invalid time period %q", period)
	}

	unit := period[len(period)-1]
	n, err := strconv.ParseInt(period[:len(period)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budgetguard: invalid time period %q: %w", period, err)
	}

	var d time.Duration
	switch unit {
	case 's':
		d = time.Duration(n) * time.Second
	case 'm':
		d = time.Duration(n) * time.Minute
	case 'h':
		d = time.Duration(n) * time.Hour
	case 'd':
		d = time.Duration(n) * 24 * time.Hour
	case 'w':
		d = time.Duration(n) * 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("budgetguard: invalid time period unit %q in %q", string(unit), period)
	}

	if d <= 0 {
		return 0, fmt.Errorf("budgetguard: time period %q must be positive", period)
	}
	return d, nil
}
