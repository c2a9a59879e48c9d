package risk

import (
	"fmt"
	"sync/atomic"

	"github.com/richxcame/cardshield/pkg/config"
)

// Sensitivity selects the active threshold table.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ThresholdTable maps score boundaries to risk levels. A score at or above
// a boundary lands on that level; below Medium is low risk.
type ThresholdTable struct {
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// Level resolves a score against the table.
func (t ThresholdTable) Level(score float64) RiskLevel {
	switch {
	case score >= t.Critical:
		return RiskLevelCritical
	case score >= t.High:
		return RiskLevelHigh
	case score >= t.Medium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// DefaultThresholds is the placeholder policy table. The boundaries carry
// no empirical basis; production deployments tune them per sensitivity
// through configuration updates.
var DefaultThresholds = map[Sensitivity]ThresholdTable{
	SensitivityLow:    {Medium: 60, High: 80, Critical: 90},
	SensitivityMedium: {Medium: 50, High: 70, Critical: 85},
	SensitivityHigh:   {Medium: 40, High: 60, Critical: 80},
}

// Configuration is the process-wide fraud detection configuration. A
// Configuration value is immutable once published through a Store; updates
// build a fresh value and swap it in whole.
type Configuration struct {
	Enabled      bool                           `json:"enabled"`
	Sensitivity  Sensitivity                    `json:"sensitivity"`
	EnabledRules []FactorType                   `json:"enabled_rules"`
	Thresholds   map[Sensitivity]ThresholdTable `json:"thresholds"`
	UpdatedBy    string                         `json:"updated_by,omitempty"`
}

// RuleEnabled reports whether an analyzer should run under this snapshot.
func (c *Configuration) RuleEnabled(t FactorType) bool {
	for _, rule := range c.EnabledRules {
		if rule == t {
			return true
		}
	}
	return false
}

// ActiveThresholds returns the table selected by the snapshot's sensitivity.
func (c *Configuration) ActiveThresholds() ThresholdTable {
	if table, ok := c.Thresholds[c.Sensitivity]; ok {
		return table
	}
	return DefaultThresholds[SensitivityMedium]
}

// Validate rejects a configuration before it can be swapped in. The prior
// snapshot stays active when validation fails.
func (c *Configuration) Validate() error {
	switch c.Sensitivity {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
	default:
		return fmt.Errorf("unknown sensitivity %q", c.Sensitivity)
	}

	for _, rule := range c.EnabledRules {
		known := false
		for _, t := range AllFactorTypes {
			if rule == t {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown rule %q", rule)
		}
	}

	for sensitivity, table := range c.Thresholds {
		if table.Medium < 0 || table.Critical > 100 ||
			table.Medium > table.High || table.High > table.Critical {
			return fmt.Errorf("thresholds for %q are not monotonic within [0,100]", sensitivity)
		}
	}

	return nil
}

// DefaultConfiguration builds the boot-time configuration from the service
// config. An empty rule list enables every analyzer.
func DefaultConfiguration(cfg config.FraudConfig) *Configuration {
	rules := make([]FactorType, 0, len(AllFactorTypes))
	if len(cfg.EnabledRules) == 0 {
		rules = append(rules, AllFactorTypes...)
	} else {
		for _, name := range cfg.EnabledRules {
			rules = append(rules, FactorType(name))
		}
	}

	thresholds := make(map[Sensitivity]ThresholdTable, len(DefaultThresholds))
	for sensitivity, table := range DefaultThresholds {
		thresholds[sensitivity] = table
	}

	return &Configuration{
		Enabled:      cfg.Enabled,
		Sensitivity:  Sensitivity(cfg.Sensitivity),
		EnabledRules: rules,
		Thresholds:   thresholds,
	}
}

// ConfigStore publishes the active configuration to concurrent scorers.
// Readers take lock-free snapshots; writers validate and swap atomically,
// last writer wins.
type ConfigStore struct {
	current atomic.Pointer[Configuration]
}

// NewConfigStore creates a store holding the initial configuration.
func NewConfigStore(initial *Configuration) (*ConfigStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	s := &ConfigStore{}
	s.current.Store(initial)
	return s, nil
}

// Snapshot returns the active configuration. The returned value must not
// be mutated.
func (s *ConfigStore) Snapshot() *Configuration {
	return s.current.Load()
}

// Update validates and atomically swaps in a new configuration. In-flight
// assessments keep the snapshot they started with.
func (s *ConfigStore) Update(cfg *Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.current.Store(cfg)
	return nil
}
