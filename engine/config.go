// Package engine composes the rewriting pipeline: pattern table, text
// processor, modifier, traverser, watcher, and tooltip layer wired around
// one document and one processing loop. Nothing here is a global: every
// collaborator is an explicit instance injected at construction.
package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/rephrase/pattern"
)

// Config is the top-level engine configuration.
type Config struct {
	// RulesFile points at a YAML rule file. Takes precedence over Rules.
	RulesFile string `yaml:"rules_file"`
	// Rules are inline replacement rules, used when RulesFile is empty.
	Rules []pattern.Rule `yaml:"rules"`

	// ChunkSize is the number of text nodes converted per traversal batch.
	ChunkSize int `yaml:"chunk_size"`
	// BudgetCeiling caps total conversion operations per page.
	BudgetCeiling int64 `yaml:"budget_ceiling"`
	// CacheLimit bounds the text-processor result cache.
	CacheLimit int `yaml:"cache_limit"`

	// DebounceWindow batches mutation records before re-traversal.
	DebounceWindow time.Duration `yaml:"debounce_window"`
	// DebounceMaxBuffer flushes immediately at this many records.
	DebounceMaxBuffer int `yaml:"debounce_max_buffer"`

	// TooltipShowDelay debounces tooltip show on pointer sweep.
	TooltipShowDelay time.Duration `yaml:"tooltip_show_delay"`
	// TooltipGap is the pixel distance between target and tooltip.
	TooltipGap float64 `yaml:"tooltip_gap"`
	// ViewportWidth/Height describe the visible area used for placement.
	ViewportWidth  float64 `yaml:"viewport_width"`
	ViewportHeight float64 `yaml:"viewport_height"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("engine: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 50
	}
	if c.BudgetCeiling <= 0 {
		c.BudgetCeiling = 5000
	}
	if c.CacheLimit <= 0 {
		c.CacheLimit = 1000
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 250 * time.Millisecond
	}
	if c.DebounceMaxBuffer <= 0 {
		c.DebounceMaxBuffer = 1000
	}
	if c.TooltipShowDelay <= 0 {
		c.TooltipShowDelay = 150 * time.Millisecond
	}
	if c.TooltipGap <= 0 {
		c.TooltipGap = 8
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 800
	}
}

// BuildTable resolves the pattern table: rule file first, inline rules
// second, the built-in table as fallback.
func (c *Config) BuildTable() (*pattern.Table, error) {
	if c.RulesFile != "" {
		return pattern.LoadFile(c.RulesFile)
	}
	if len(c.Rules) > 0 {
		return pattern.Compile(c.Rules)
	}
	return pattern.Default(), nil
}
