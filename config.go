package budgetguard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Budget constrains a single provider's spend over a fixed time window.
type Budget struct {
	// Limit is the maximum dollar spend allowed within one window.
	Limit float64 `yaml:"budget_limit"`

	// Period is the window duration as a unit-suffixed string, e.g.
	// "1d" or "7d". See ParsePeriod for the accepted suffixes.
	Period string `yaml:"time_period"`
}

// Config maps provider names to their budgets. Providers absent from the
// map are unconstrained and pass through the filter unchecked.
//
// Example YAML:
//
//	openai:
//	  budget_limit: 100
//	  time_period: 7d
//	anthropic:
//	  budget_limit: 50
//	  time_period: 1d
type Config map[string]*Budget

// LoadConfig reads and parses a YAML budget config file.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("budgetguard: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("budgetguard: parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every configured provider for a usable budget entry.
// A provider mapping to a null entry, a non-positive limit, or an
// unparseable period is a static configuration error.
func (c Config) Validate() error {
	for provider, b := range c {
		if b == nil {
			return fmt.Errorf("budgetguard: config: no budget found for provider %q", provider)
		}
		if b.Limit <= 0 {
			return fmt.Errorf("budgetguard: config: provider %q: budget_limit must be positive, got %v", provider, b.Limit)
		}
		if _, err := ParsePeriod(b.Period); err != nil {
			return fmt.Errorf("budgetguard: config: provider %q: %w", provider, err)
		}
	}
	return nil
}
