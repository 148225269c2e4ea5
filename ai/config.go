package ai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration, loadable from YAML with
// flag overrides applied by the caller.
type Config struct {
	Listen     string           `yaml:"listen"`
	LogLevel   string           `yaml:"log_level"`
	Comms      CommsConfig      `yaml:"comms"`
	Difficulty DifficultyConfig `yaml:"difficulty"`
	Sim        SimConfig        `yaml:"sim"`
}

// CommsConfig tunes the message hub and per-agent endpoints.
type CommsConfig struct {
	// Range is the broadcast radius in world units.
	Range float64 `yaml:"range"`
	// ProcessingInterval is the endpoint drain period in seconds.
	ProcessingInterval float64 `yaml:"processing_interval"`
	// QueueSize bounds each endpoint's inbound and outbound queues.
	QueueSize int `yaml:"queue_size"`
	// HistorySize bounds each endpoint's processed-message history.
	HistorySize int `yaml:"history_size"`
}

// DifficultyConfig tunes the adaptive difficulty controller.
type DifficultyConfig struct {
	InitialLevel       string  `yaml:"initial_level"`
	EvaluationInterval float64 `yaml:"evaluation_interval"`
	AdaptationRate     float64 `yaml:"adaptation_rate"`
}

// SimConfig tunes the demo simulation hosted by the server.
type SimConfig struct {
	Agents    int    `yaml:"agents"`
	Formation string `yaml:"formation"`
	Seed      int64  `yaml:"seed"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Comms: CommsConfig{
			Range:              1500,
			ProcessingInterval: 0.2,
			QueueSize:          64,
			HistorySize:        32,
		},
		Difficulty: DifficultyConfig{
			InitialLevel:       "medium",
			EvaluationInterval: 10,
			AdaptationRate:     0.1,
		},
		Sim: SimConfig{
			Agents:    8,
			Formation: "vee",
			Seed:      1,
		},
	}
}

// LoadConfig reads a YAML file over the defaults and validates the
// result. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.Comms.Range <= 0 {
		return fmt.Errorf("comms range must be positive, got %v", c.Comms.Range)
	}
	if c.Comms.ProcessingInterval <= 0 {
		return fmt.Errorf("comms processing interval must be positive, got %v", c.Comms.ProcessingInterval)
	}
	if c.Comms.QueueSize < 1 {
		return fmt.Errorf("comms queue size must be at least 1, got %d", c.Comms.QueueSize)
	}
	if c.Comms.HistorySize < 1 {
		return fmt.Errorf("comms history size must be at least 1, got %d", c.Comms.HistorySize)
	}
	if _, err := ParseLevel(c.Difficulty.InitialLevel); err != nil {
		return err
	}
	if c.Difficulty.EvaluationInterval <= 0 {
		return fmt.Errorf("difficulty evaluation interval must be positive, got %v", c.Difficulty.EvaluationInterval)
	}
	if c.Difficulty.AdaptationRate <= 0 || c.Difficulty.AdaptationRate > 1 {
		return fmt.Errorf("difficulty adaptation rate must be in (0, 1], got %v", c.Difficulty.AdaptationRate)
	}
	if c.Sim.Agents < 0 {
		return fmt.Errorf("sim agents must not be negative, got %d", c.Sim.Agents)
	}
	if _, err := ParseFormationType(c.Sim.Formation); err != nil {
		return err
	}
	return nil
}

// EndpointConfig is the comms tuning handed to each endpoint.
type EndpointConfig struct {
	Range              float64
	ProcessingInterval float64
	QueueSize          int
	HistorySize        int
}

// Endpoint returns the per-endpoint view of the comms config.
func (c CommsConfig) Endpoint() EndpointConfig {
	return EndpointConfig{
		Range:              c.Range,
		ProcessingInterval: c.ProcessingInterval,
		QueueSize:          c.QueueSize,
		HistorySize:        c.HistorySize,
	}
}
