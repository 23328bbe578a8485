// Package config loads and validates the vigil runtime configuration.
//
// Configuration is YAML with ${ENV_VAR} expansion. Every tunable has a
// default so an empty file yields a runnable (mock-mode) configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level runtime configuration.
type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	LLM     LLMConfig     `yaml:"llm"`
	Memory  MemoryConfig  `yaml:"memory"`
	Skills  SkillsConfig  `yaml:"skills"`
	Time    TimeConfig    `yaml:"time"`
	Logging LoggingConfig `yaml:"logging"`
}

// AgentConfig configures the assistant persona and planner behavior.
type AgentConfig struct {
	// Name is the assistant's addressable name; guild messages must
	// mention it (word-bounded) to be planned.
	Name string `yaml:"name"`

	// MockMode makes the planner return deterministic canned plans
	// without calling any language model.
	MockMode bool `yaml:"mockMode"`
}

// LLMConfig selects and configures the planner's language model provider.
type LLMConfig struct {
	// Provider is "anthropic", "openai", or "mock".
	Provider string `yaml:"provider"`

	// Model is the provider-specific model id.
	Model string `yaml:"model"`

	// APIKey is the provider credential; normally supplied via
	// ${ANTHROPIC_API_KEY} or ${OPENAI_API_KEY} expansion.
	APIKey string `yaml:"apiKey"`

	// BaseURL overrides the provider endpoint (tests, proxies).
	BaseURL string `yaml:"baseURL"`

	// MaxTokens caps the completion length.
	MaxTokens int `yaml:"maxTokens"`

	// Timeout bounds each completion call.
	Timeout time.Duration `yaml:"timeout"`
}

// MemoryConfig configures the memory service client.
type MemoryConfig struct {
	// BaseURL is the memory service root, e.g. "http://localhost:8230".
	BaseURL string `yaml:"baseURL"`

	// Timeout bounds each memory call.
	Timeout time.Duration `yaml:"timeout"`
}

// SkillsConfig configures skill graph promotion, replay, and decay.
type SkillsConfig struct {
	// SimilarityThreshold is the minimum similarity for skill replay.
	// Overridable with VIGIL_SKILL_SIMILARITY.
	SimilarityThreshold float64 `yaml:"similarityThreshold"`

	// MinStreak is the consecutive-success threshold for promotion.
	MinStreak int `yaml:"minStreak"`

	// MinSuccessRate is the success-rate threshold for promotion.
	MinSuccessRate float64 `yaml:"minSuccessRate"`

	// MinExecutions is the execution-count threshold for promotion.
	MinExecutions int `yaml:"minExecutions"`

	// DecayFloor demotes skills whose success rate falls below it.
	DecayFloor float64 `yaml:"decayFloor"`

	// PreferredRate marks active skills at or above it as preferred.
	PreferredRate float64 `yaml:"preferredRate"`

	// ArchiveAfter archives skills unused for this long.
	ArchiveAfter time.Duration `yaml:"archiveAfter"`

	// DecayInterval is the period of the background decay loop.
	DecayInterval time.Duration `yaml:"decayInterval"`

	// PatternBlacklist lists intent domains excluded from replay;
	// matching observations always take the tool path.
	PatternBlacklist []string `yaml:"patternBlacklist"`
}

// TimeConfig configures user-facing time interpretation.
type TimeConfig struct {
	// Timezone is the IANA zone used to resolve ambiguous reminder
	// times ("tomorrow" means 09:00 in this zone). Empty means the
	// host's local zone.
	Timezone string `yaml:"timezone"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Name: "vi",
		},
		LLM: LLMConfig{
			Provider:  "mock",
			MaxTokens: 1024,
			Timeout:   30 * time.Second,
		},
		Memory: MemoryConfig{
			BaseURL: "http://localhost:8230",
			Timeout: 10 * time.Second,
		},
		Skills: SkillsConfig{
			SimilarityThreshold: 0.8,
			MinStreak:           3,
			MinSuccessRate:      0.8,
			MinExecutions:       3,
			DecayFloor:          0.5,
			PreferredRate:       0.9,
			ArchiveAfter:        30 * 24 * time.Hour,
			DecayInterval:       time.Hour,
			PatternBlacklist:    []string{"weather"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file, expands ${ENV_VAR} references, merges it
// over the defaults, and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the environment tunables that exist independent
// of the config file.
func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("VIGIL_SKILL_SIMILARITY"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 && v <= 1 {
			cfg.Skills.SimilarityThreshold = v
		}
	}
	if raw := os.Getenv("VIGIL_LOG_LEVEL"); raw != "" {
		cfg.Logging.Level = raw
	}
	if raw := os.Getenv("VIGIL_MOCK_MODE"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Agent.MockMode = v
		}
	}
}

// Validate checks for configuration errors that would make the runtime
// misbehave silently.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Agent.Name) == "" {
		return fmt.Errorf("agent.name is required")
	}
	switch c.LLM.Provider {
	case "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("llm.provider must be anthropic, openai, or mock (got %q)", c.LLM.Provider)
	}
	if c.LLM.Provider != "mock" && !c.Agent.MockMode && strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("llm.apiKey is required for provider %q", c.LLM.Provider)
	}
	if strings.TrimSpace(c.Memory.BaseURL) == "" {
		return fmt.Errorf("memory.baseURL is required")
	}
	if c.Skills.SimilarityThreshold <= 0 || c.Skills.SimilarityThreshold > 1 {
		return fmt.Errorf("skills.similarityThreshold must be in (0,1]")
	}
	if c.Skills.MinSuccessRate < 0 || c.Skills.MinSuccessRate > 1 {
		return fmt.Errorf("skills.minSuccessRate must be in [0,1]")
	}
	if c.Time.Timezone != "" {
		if _, err := time.LoadLocation(c.Time.Timezone); err != nil {
			return fmt.Errorf("time.timezone %q: %w", c.Time.Timezone, err)
		}
	}
	return nil
}

// Location resolves the configured user timezone, falling back to the
// host's local zone.
func (c *Config) Location() *time.Location {
	if c.Time.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Time.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
