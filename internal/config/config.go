package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level tool configuration, stored as YAML.
type Config struct {
	Project  ProjectConfig  `yaml:"project,omitempty"`
	AI       AIConfig       `yaml:"ai,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Storage  StorageConfig  `yaml:"storage,omitempty"`
	Serve    ServeConfig    `yaml:"serve,omitempty"`
	Summary  SummaryConfig  `yaml:"summary,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
}

// ProjectConfig names the active project.
type ProjectConfig struct {
	Name string `yaml:"name,omitempty"`
}

// AIConfig selects and configures the completion provider.
type AIConfig struct {
	Provider    string  `yaml:"provider,omitempty"` // "anthropic", "openai", or an openai-compatible name
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
}

// DefaultsConfig holds the ambient narrative settings used when a scene
// carries none of its own.
type DefaultsConfig struct {
	POV          string `yaml:"pov,omitempty"`
	POVCharacter string `yaml:"pov_character,omitempty"`
	Tense        string `yaml:"tense,omitempty"`
}

type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

type ServeConfig struct {
	Port int `yaml:"port,omitempty"`
}

// SummaryConfig configures batch summarization runs.
type SummaryConfig struct {
	Template string `yaml:"template,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// DefaultSummaryTemplate is used when no template is configured.
const DefaultSummaryTemplate = `Summarize the following scene in {{ outputWordCount }} words or fewer.
Write in {{ pov }}{% if pov_character %} from {{ pov_character }}'s perspective{% endif %}, using {{ tense }}.

Scene ({{ wordCount }} words):
{{ story_so_far }}`

// DefaultPath returns the default config file location.
func DefaultPath() string {
	if p := os.Getenv("INKWRIGHT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".inkwright.yaml"
	}
	return filepath.Join(home, ".inkwright.yaml")
}

// Load reads the config from the default location, applying defaults and
// environment overrides. A missing file yields the defaults, not an error.
func Load() (*Config, error) {
	return LoadFromPath(DefaultPath())
}

// LoadFromPath reads the config from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config to the given path.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "Untitled Project"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "anthropic"
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = 2000
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 1.0
	}
	if c.Defaults.POV == "" {
		c.Defaults.POV = "Third Person Limited"
	}
	if c.Defaults.POVCharacter == "" {
		c.Defaults.POVCharacter = "Character"
	}
	if c.Defaults.Tense == "" {
		c.Defaults.Tense = "Present Tense"
	}
	if c.Storage.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Storage.Path = filepath.Join(home, ".inkwright", "project.db")
	}
	if c.Serve.Port <= 0 {
		c.Serve.Port = 8765
	}
	if c.Summary.Template == "" {
		c.Summary.Template = DefaultSummaryTemplate
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INKWRIGHT_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("INKWRIGHT_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv("INKWRIGHT_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("INKWRIGHT_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("INKWRIGHT_DB"); v != "" {
		c.Storage.Path = v
	}
}
