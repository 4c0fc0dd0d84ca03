// Package config loads typed configuration for vaultforge from environment
// variables, following the prefix-scoped EnvConfig pattern used throughout
// the rest of the engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig reads prefix-scoped environment variables with typed defaults.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a loader for VAULTFORGE_<prefix>_<KEY> variables.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix == "" {
		return "VAULTFORGE_" + key
	}
	return "VAULTFORGE_" + ec.prefix + "_" + key
}

func (ec *EnvConfig) GetString(key, def string) string {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		return v
	}
	return def
}

func (ec *EnvConfig) GetInt(key string, def int) int {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (ec *EnvConfig) GetBool(key string, def bool) bool {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (ec *EnvConfig) GetDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func (ec *EnvConfig) GetStringSlice(key string, def []string) []string {
	v := os.Getenv(ec.buildKey(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxPageSize     int
}

func LoadServerConfig() ServerConfig {
	env := NewEnvConfig("SERVER")
	return ServerConfig{
		Port:            env.GetInt("PORT", 8090),
		Host:            env.GetString("HOST", "0.0.0.0"),
		ReadTimeout:     env.GetDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    env.GetDuration("WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxPageSize:     env.GetInt("MAX_PAGE_SIZE", 100),
	}
}

// DatabaseConfig controls the Postgres-backed registry and audit log.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	UseInMemory     bool
	MaxInMemoryRows int
}

func LoadDatabaseConfig() DatabaseConfig {
	env := NewEnvConfig("DB")
	return DatabaseConfig{
		DSN:             env.GetString("DSN", ""),
		MaxOpenConns:    env.GetInt("MAX_OPEN_CONNS", 10),
		UseInMemory:     env.GetBool("USE_IN_MEMORY", true),
		MaxInMemoryRows: env.GetInt("MAX_IN_MEMORY_ROWS", 10000),
	}
}

// QueueConfig controls the async dispatch backend.
type QueueConfig struct {
	RedisURL   string
	KeyPrefix  string
	TaskTTL    time.Duration
	SoftLimit  time.Duration
	HardLimit  time.Duration
	NumWorkers int
}

func LoadQueueConfig() QueueConfig {
	env := NewEnvConfig("QUEUE")
	return QueueConfig{
		RedisURL:   env.GetString("REDIS_URL", "redis://localhost:6379/0"),
		KeyPrefix:  env.GetString("KEY_PREFIX", "vaultforge"),
		TaskTTL:    env.GetDuration("TASK_TTL", 24*time.Hour),
		SoftLimit:  env.GetDuration("SOFT_LIMIT", 540*time.Second),
		HardLimit:  env.GetDuration("HARD_LIMIT", 600*time.Second),
		NumWorkers: env.GetInt("NUM_WORKERS", 2),
	}
}

// LLMConfig controls the topic-proposal language-model client.
type LLMConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	UseMock   bool
}

func LoadLLMConfig() LLMConfig {
	env := NewEnvConfig("LLM")
	return LLMConfig{
		APIKey:    env.GetString("API_KEY", ""),
		Model:     env.GetString("MODEL", "claude-sonnet-4-5"),
		MaxTokens: env.GetInt("MAX_TOKENS", 256),
		Timeout:   env.GetDuration("TIMEOUT", 30*time.Second),
		UseMock:   env.GetBool("USE_MOCK", false),
	}
}

// ResearchConfig controls the deep-research HTTP client.
type ResearchConfig struct {
	BaseURL string
	Timeout time.Duration
	UseMock bool
}

func LoadResearchConfig() ResearchConfig {
	env := NewEnvConfig("RESEARCH")
	return ResearchConfig{
		BaseURL: env.GetString("BASE_URL", "http://localhost:9090"),
		Timeout: env.GetDuration("TIMEOUT", 120*time.Second),
		UseMock: env.GetBool("USE_MOCK", false),
	}
}

// ForgeConfig controls the draft-branch version-control client.
type ForgeConfig struct {
	Provider string // "gitea" or "gitlab"
	BaseURL  string
	Token    string
	Owner    string
	Repo     string
	Branch   string
	UseMock  bool
}

func LoadForgeConfig() ForgeConfig {
	env := NewEnvConfig("FORGE")
	return ForgeConfig{
		Provider: env.GetString("PROVIDER", "gitea"),
		BaseURL:  env.GetString("BASE_URL", ""),
		Token:    env.GetString("TOKEN", ""),
		Owner:    env.GetString("OWNER", ""),
		Repo:     env.GetString("REPO", ""),
		Branch:   env.GetString("DEFAULT_BRANCH", "main"),
		UseMock:  env.GetBool("USE_MOCK", false),
	}
}

// LoggingConfig controls the ambient logger.
type LoggingConfig struct {
	Level  string
	Format string
}

func LoadLoggingConfig() LoggingConfig {
	env := NewEnvConfig("LOG")
	return LoggingConfig{
		Level:  env.GetString("LEVEL", "info"),
		Format: env.GetString("FORMAT", "text"),
	}
}

// Validator accumulates configuration errors so startup can report all of
// them at once instead of failing on the first.
type Validator struct {
	errors []string
}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) RequireString(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

func (v *Validator) Validate() error {
	if v.IsValid() {
		return nil
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(v.errors, "; "))
}

// All aggregates every typed configuration block the process needs.
type All struct {
	Server   ServerConfig
	Database DatabaseConfig
	Queue    QueueConfig
	LLM      LLMConfig
	Research ResearchConfig
	Forge    ForgeConfig
	Logging  LoggingConfig
}

// LoadAll loads and validates every configuration block.
func LoadAll() (*All, error) {
	cfg := &All{
		Server:   LoadServerConfig(),
		Database: LoadDatabaseConfig(),
		Queue:    LoadQueueConfig(),
		LLM:      LoadLLMConfig(),
		Research: LoadResearchConfig(),
		Forge:    LoadForgeConfig(),
		Logging:  LoadLoggingConfig(),
	}

	v := NewValidator()
	v.RequirePositiveInt("Server.Port", cfg.Server.Port)
	v.RequireOneOf("Logging.Level", cfg.Logging.Level, []string{"debug", "info", "warn", "error"})
	v.RequireOneOf("Forge.Provider", cfg.Forge.Provider, []string{"gitea", "gitlab"})
	if !cfg.Database.UseInMemory {
		v.RequireString("Database.DSN", cfg.Database.DSN)
	}
	if !cfg.Forge.UseMock {
		v.RequireString("Forge.BaseURL", cfg.Forge.BaseURL)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
