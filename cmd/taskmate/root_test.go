package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashutoshrp06/taskmate/internal/config"
)

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmate.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  model: llama3.1:8b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	configPath = path
	t.Cleanup(func() { configPath = "" })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.LLM.Model != "llama3.1:8b" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.Agent.MaxIterations != config.DefaultConfig().Agent.MaxIterations {
		t.Error("unset keys should keep their defaults")
	}
}

func TestCreateLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.Level = "warn"
	logger := createLogger(cfg)
	if logger == nil {
		t.Fatal("nil logger")
	}
	if logger.Core().Enabled(-1) {
		t.Error("debug should be disabled at warn level")
	}
}

func TestRootCommandWiring(t *testing.T) {
	for _, name := range []string{"config", "tools", "version"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered", name)
		}
	}
	for _, flag := range []string{"config", "verbose", "user"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}
