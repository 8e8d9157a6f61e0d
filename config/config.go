package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gridlearn/core/agent"
	"github.com/kilianp07/gridlearn/core/metrics"
	"github.com/kilianp07/gridlearn/core/sim"
)

// Config is the root configuration of a training run.
type Config struct {
	Agent    agent.Config       `json:"agent"`
	Scenario sim.ScenarioConfig `json:"scenario"`
	Metrics  metrics.Config     `json:"metrics"`
	Episodes int                `json:"episodes"`
	// Reward selects the environment reward transform: "cubic" penalizes
	// each agent's own net consumption, "shared" couples agents through
	// the district total.
	Reward string `json:"reward"`
}

// SetDefaults fills every section with its reference values.
func (c *Config) SetDefaults() {
	c.Agent.SetDefaults()
	c.Scenario.SetDefaults()
	c.Metrics.SetDefaults()
	if c.Episodes == 0 {
		c.Episodes = 10
	}
	if c.Reward == "" {
		c.Reward = "cubic"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive, got %d", c.Episodes)
	}
	if c.Reward != "cubic" && c.Reward != "shared" {
		return fmt.Errorf("unknown reward function %q", c.Reward)
	}
	return nil
}

// Load reads a yaml or json file, applies GL_-prefixed environment
// overrides, then defaults and validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("GL_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "gl_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
