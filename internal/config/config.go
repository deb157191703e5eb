package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromBytes loads configuration from YAML bytes with environment variable expansion
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()
	return c, nil
}

// LoadFile reads a YAML config file from disk. Values missing from the file
// keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

type Config struct {
	Name   string `yaml:"name"`
	Server struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		AllowedOrigins  string        `yaml:"allowed_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Auth struct {
		AccessSecret string `yaml:"access_secret"`
		AccessExpire int64  `yaml:"access_expire"`
	} `yaml:"auth"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Providers Providers `yaml:"providers"`
	Chat      struct {
		DefaultModel  string        `yaml:"default_model"`
		TitleModel    string        `yaml:"title_model"`
		HistoryWindow int           `yaml:"history_window"`
		MaxTokens     int           `yaml:"max_tokens"`
		TitleTimeout  time.Duration `yaml:"title_timeout"`
		StreamTimeout time.Duration `yaml:"stream_timeout"`
	} `yaml:"chat"`
	Prompt struct {
		PolicyPath string `yaml:"policy_path"`
	} `yaml:"prompt"`
	Knowledge struct {
		Enabled   string `yaml:"enabled"`
		TopK      int    `yaml:"top_k"`
		ChunkSize int    `yaml:"chunk_size"`
	} `yaml:"knowledge"`
	Analysis struct {
		Workers       int           `yaml:"workers"`
		Model         string        `yaml:"model"`
		MaxInputChars int           `yaml:"max_input_chars"`
		Timeout       time.Duration `yaml:"timeout"`
		StaleAfter    time.Duration `yaml:"stale_after"`
		SweepSchedule string        `yaml:"sweep_schedule"`
	} `yaml:"analysis"`
	Upload struct {
		MaxBytes     int64 `yaml:"max_bytes"`
		MaxTextChars int   `yaml:"max_text_chars"`
	} `yaml:"upload"`
}

// Providers holds the credentials for each model family. An empty credential
// disables that family.
type Providers struct {
	OpenAIKey      string        `yaml:"openai_api_key"`
	AnthropicKey   string        `yaml:"anthropic_api_key"`
	GeminiKey      string        `yaml:"gemini_api_key"`
	OllamaURL      string        `yaml:"ollama_url"`
	CompatBaseURL  string        `yaml:"compat_base_url"`
	CompatKey      string        `yaml:"compat_api_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "sentry"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Auth.AccessExpire == 0 {
		c.Auth.AccessExpire = 86400
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "./data/sentry.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Providers.RequestTimeout == 0 {
		c.Providers.RequestTimeout = 120 * time.Second
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = "gpt-4o-mini"
	}
	if c.Chat.TitleModel == "" {
		c.Chat.TitleModel = c.Chat.DefaultModel
	}
	if c.Chat.HistoryWindow == 0 {
		c.Chat.HistoryWindow = 15
	}
	if c.Chat.MaxTokens == 0 {
		c.Chat.MaxTokens = 4096
	}
	if c.Chat.TitleTimeout == 0 {
		c.Chat.TitleTimeout = 20 * time.Second
	}
	if c.Chat.StreamTimeout == 0 {
		c.Chat.StreamTimeout = 360 * time.Second
	}
	if c.Knowledge.TopK == 0 {
		c.Knowledge.TopK = 3
	}
	if c.Knowledge.ChunkSize == 0 {
		c.Knowledge.ChunkSize = 1600
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = 2
	}
	if c.Analysis.Model == "" {
		c.Analysis.Model = c.Chat.DefaultModel
	}
	if c.Analysis.MaxInputChars == 0 {
		c.Analysis.MaxInputChars = 120000
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 5 * time.Minute
	}
	if c.Analysis.StaleAfter == 0 {
		c.Analysis.StaleAfter = 30 * time.Minute
	}
	if c.Analysis.SweepSchedule == "" {
		c.Analysis.SweepSchedule = "@every 5m"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 16 << 20
	}
	if c.Upload.MaxTextChars == 0 {
		c.Upload.MaxTextChars = 10_000_000
	}
}

// Validate reports configuration that would make the server unusable.
// Missing provider credentials are not an error here; they surface per request.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.AccessSecret) == "" {
		return fmt.Errorf("auth.access_secret is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Chat.HistoryWindow < 0 {
		return fmt.Errorf("chat.history_window must not be negative")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be at least 1")
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c Config) IsKnowledgeEnabled() bool {
	return parseBool(c.Knowledge.Enabled, true)
}

// Origins splits the comma separated CORS allow-list. An empty list allows any origin.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
