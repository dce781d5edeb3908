package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromPathReadsAISection(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, ".inkwright.yaml")
	content := `project:
  name: "Nightfall"
ai:
  provider: "openai"
  api_key: "sk-test"
  model: "gpt-4o"
  max_tokens: 512
defaults:
  pov: "First Person"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Project.Name != "Nightfall" {
		t.Fatalf("project name: %q", cfg.Project.Name)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Model != "gpt-4o" || cfg.AI.MaxTokens != 512 {
		t.Fatalf("ai section: %+v", cfg.AI)
	}
	if cfg.Defaults.POV != "First Person" {
		t.Fatalf("pov: %q", cfg.Defaults.POV)
	}
	// Absent fields fall back to the defaults.
	if cfg.Defaults.Tense != "Present Tense" || cfg.Defaults.POVCharacter != "Character" {
		t.Fatalf("defaults not applied: %+v", cfg.Defaults)
	}
	if cfg.Summary.Template == "" {
		t.Fatalf("summary template default missing")
	}
}

func TestLoadFromPathMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.AI.Provider != "anthropic" {
		t.Fatalf("default provider: %q", cfg.AI.Provider)
	}
	if cfg.Defaults.POV != "Third Person Limited" {
		t.Fatalf("default pov: %q", cfg.Defaults.POV)
	}
	if cfg.Serve.Port != 8765 {
		t.Fatalf("default port: %d", cfg.Serve.Port)
	}
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	t.Setenv("INKWRIGHT_API_KEY", "env-key")
	t.Setenv("INKWRIGHT_PROVIDER", "deepseek")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AI.APIKey != "env-key" || cfg.AI.Provider != "deepseek" {
		t.Fatalf("env overrides not applied: %+v", cfg.AI)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".inkwright.yaml")

	cfg, _ := LoadFromPath(path)
	cfg.Project.Name = "Roundtrip"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Project.Name != "Roundtrip" {
		t.Fatalf("name after roundtrip: %q", loaded.Project.Name)
	}
}
