// Package config handles taskmate configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TASKMATE"

// Config holds all taskmate configuration.
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Agent        AgentConfig        `mapstructure:"agent" yaml:"agent"`
	Conversation ConversationConfig `mapstructure:"conversation" yaml:"conversation"`
	Store        StoreConfig        `mapstructure:"store" yaml:"store"`
	Qdrant       QdrantConfig       `mapstructure:"qdrant" yaml:"qdrant"`
	Embedding    EmbeddingConfig    `mapstructure:"embedding" yaml:"embedding"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
}

type LLMConfig struct {
	// Provider is "ollama" (/api/generate) or "openai" (/chat/completions).
	Provider       string  `mapstructure:"provider" yaml:"provider"`
	Endpoint       string  `mapstructure:"endpoint" yaml:"endpoint"`
	Model          string  `mapstructure:"model" yaml:"model"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries"`
}

// Timeout returns the request timeout as a duration.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

type AgentConfig struct {
	MaxIterations      int `mapstructure:"max_iterations" yaml:"max_iterations"`
	ResponseCharBudget int `mapstructure:"response_char_budget" yaml:"response_char_budget"`
}

type ConversationConfig struct {
	// Backend is "memory" or "sqlite".
	Backend         string        `mapstructure:"backend" yaml:"backend"`
	TTL             time.Duration `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
	Path            string        `mapstructure:"path" yaml:"path"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type QdrantConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	UseTLS     bool   `mapstructure:"use_tls" yaml:"use_tls"`
}

type EmbeddingConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Model    string `mapstructure:"model" yaml:"model"`
	Dim      int    `mapstructure:"dim" yaml:"dim"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "ollama",
			Endpoint:       "http://localhost:11434",
			Model:          "qwen2.5:7b",
			TimeoutSeconds: 60,
			Temperature:    0.1,
			MaxTokens:      512,
			MaxRetries:     2,
		},
		Agent: AgentConfig{
			MaxIterations:      5,
			ResponseCharBudget: 300,
		},
		Conversation: ConversationConfig{
			Backend:         "memory",
			TTL:             time.Hour,
			CleanupInterval: 5 * time.Minute,
			Path:            "taskmate-conversations.db",
		},
		Store: StoreConfig{
			Path: "taskmate.db",
		},
		Qdrant: QdrantConfig{
			Enabled:    false,
			Host:       "localhost",
			Port:       6334,
			Collection: "tasks",
		},
		Embedding: EmbeddingConfig{
			Endpoint: "http://localhost:11434",
			Model:    "nomic-embed-text",
			Dim:      768,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns ~/.taskmate.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".taskmate"), nil
}

// SearchPaths lists config files in order of precedence.
func SearchPaths() []string {
	paths := []string{"config.local.yaml", "config.yaml"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	return paths
}

// Load reads the config file at path. Missing keys take their defaults and
// TASKMATE_* environment variables override file values
// (TASKMATE_LLM_MODEL overrides llm.model).
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// LoadFromPaths loads the first existing file in paths. When none exists it
// returns the defaults with environment overrides applied.
func LoadFromPaths(paths ...string) (*Config, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.endpoint", d.LLM.Endpoint)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.timeout_seconds", d.LLM.TimeoutSeconds)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)

	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)
	v.SetDefault("agent.response_char_budget", d.Agent.ResponseCharBudget)

	v.SetDefault("conversation.backend", d.Conversation.Backend)
	v.SetDefault("conversation.ttl", d.Conversation.TTL)
	v.SetDefault("conversation.cleanup_interval", d.Conversation.CleanupInterval)
	v.SetDefault("conversation.path", d.Conversation.Path)

	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("qdrant.enabled", d.Qdrant.Enabled)
	v.SetDefault("qdrant.host", d.Qdrant.Host)
	v.SetDefault("qdrant.port", d.Qdrant.Port)
	v.SetDefault("qdrant.collection", d.Qdrant.Collection)
	v.SetDefault("qdrant.api_key", d.Qdrant.APIKey)
	v.SetDefault("qdrant.use_tls", d.Qdrant.UseTLS)

	v.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dim", d.Embedding.Dim)

	v.SetDefault("log.level", d.Log.Level)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("llm.provider must be ollama or openai, got %q", c.LLM.Provider)
	}
	if c.LLM.Endpoint == "" {
		return errors.New("llm.endpoint is required")
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must not be negative")
	}
	if c.Agent.MaxIterations < 1 {
		return errors.New("agent.max_iterations must be at least 1")
	}

	switch c.Conversation.Backend {
	case "memory":
	case "sqlite":
		if c.Conversation.Path == "" {
			return errors.New("conversation.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("conversation.backend must be memory or sqlite, got %q", c.Conversation.Backend)
	}
	if c.Conversation.TTL <= 0 {
		return errors.New("conversation.ttl must be positive")
	}

	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}

	if c.Qdrant.Enabled {
		if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
			return fmt.Errorf("qdrant.port out of range: %d", c.Qdrant.Port)
		}
		if c.Qdrant.Collection == "" {
			return errors.New("qdrant.collection is required")
		}
		if c.Embedding.Dim <= 0 {
			return errors.New("embedding.dim must be positive when qdrant is enabled")
		}
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LogLevel returns the configured zap level, defaulting to info.
func (c *Config) LogLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
