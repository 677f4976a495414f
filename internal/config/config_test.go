package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
llm:
  provider: openai
  endpoint: http://localhost:8080/v1
  model: gpt-test
agent:
  max_iterations: 3
conversation:
  ttl: 30m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-test" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.Agent.MaxIterations != 3 {
		t.Errorf("max_iterations = %d, want 3", cfg.Agent.MaxIterations)
	}
	if cfg.Conversation.TTL != 30*time.Minute {
		t.Errorf("ttl = %v, want 30m", cfg.Conversation.TTL)
	}
	// Untouched keys keep their defaults.
	if cfg.LLM.TimeoutSeconds != 60 || cfg.Store.Path != "taskmate.db" {
		t.Errorf("defaults lost: timeout=%d store=%q", cfg.LLM.TimeoutSeconds, cfg.Store.Path)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "llm:\n  model: from-file\n")
	t.Setenv("TASKMATE_LLM_MODEL", "from-env")
	t.Setenv("TASKMATE_AGENT_MAX_ITERATIONS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "from-env" {
		t.Errorf("model = %q, want from-env", cfg.LLM.Model)
	}
	if cfg.Agent.MaxIterations != 7 {
		t.Errorf("max_iterations = %d, want 7", cfg.Agent.MaxIterations)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad provider", "llm:\n  provider: carrier-pigeon\n", "llm.provider"},
		{"zero iterations", "agent:\n  max_iterations: 0\n", "max_iterations"},
		{"bad backend", "conversation:\n  backend: redis\n", "conversation.backend"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"qdrant port", "qdrant:\n  enabled: true\n  port: 70000\n", "qdrant.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromPaths(t *testing.T) {
	dir := t.TempDir()
	second := writeFile(t, dir, "config.yaml", "llm:\n  model: second\n")
	first := filepath.Join(dir, "config.local.yaml")

	cfg, err := LoadFromPaths(first, second)
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if cfg.LLM.Model != "second" {
		t.Errorf("model = %q, want second", cfg.LLM.Model)
	}

	writeFile(t, dir, "config.local.yaml", "llm:\n  model: first\n")
	cfg, err = LoadFromPaths(first, second)
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if cfg.LLM.Model != "first" {
		t.Errorf("model = %q, want first", cfg.LLM.Model)
	}
}

func TestLoadFromPaths_NoneExist(t *testing.T) {
	cfg, err := LoadFromPaths(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPaths: %v", err)
	}
	if cfg.Agent.MaxIterations != 5 {
		t.Errorf("expected defaults, got max_iterations = %d", cfg.Agent.MaxIterations)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.LLM.Model = "saved-model"
	cfg.Conversation.TTL = 90 * time.Minute

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LLM.Model != "saved-model" || loaded.Conversation.TTL != 90*time.Minute {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
