// Package config handles loading and validating the signalbox configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the signalbox daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Delegate   DelegateConfig   `mapstructure:"delegate"`
	Dialect    DialectConfig    `mapstructure:"dialect"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Broker  string `mapstructure:"broker"`
	Topic   string `mapstructure:"topic"`
}

// EngineConfig tunes the interpretation pipeline.
type EngineConfig struct {
	// MinConfidence is the threshold below which an errored invocation
	// stops early and reports failure.
	MinConfidence float64 `mapstructure:"min_confidence"`

	// Deadline bounds one invocation end to end.
	Deadline time.Duration `mapstructure:"deadline"`

	// HistoryCapacity bounds the per-session conversation history.
	HistoryCapacity int `mapstructure:"history_capacity"`

	Cache        CacheConfig        `mapstructure:"cache"`
	ContextBoost ContextBoostConfig `mapstructure:"context_boost"`
}

// CacheConfig tunes the result cache.
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
}

// ContextBoostConfig toggles the context analysis stage.
type ContextBoostConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DelegateConfig selects and configures the optional NLU backend.
type DelegateConfig struct {
	// Backend is "" (rules only) or "openai".
	Backend string       `mapstructure:"backend"`
	OpenAI  OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig holds settings for an OpenAI-compatible completion API.
type OpenAIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DialectConfig toggles regional dialect normalization.
type DialectConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StoreConfig configures the custom command store.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./signalbox.yaml, ./configs/signalbox.yaml, /etc/signalbox/signalbox.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.topic", "signalbox/commands")
	v.SetDefault("engine.min_confidence", 0.4)
	v.SetDefault("engine.deadline", "5s")
	v.SetDefault("engine.history_capacity", 50)
	v.SetDefault("engine.cache.enabled", true)
	v.SetDefault("engine.cache.ttl", "5m")
	v.SetDefault("engine.cache.capacity", 100)
	v.SetDefault("engine.context_boost.enabled", true)
	v.SetDefault("delegate.backend", "")
	v.SetDefault("delegate.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("delegate.openai.model", "gpt-4o-mini")
	v.SetDefault("delegate.openai.timeout", "10s")
	v.SetDefault("dialect.enabled", true)
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "signalbox.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("signalbox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/signalbox")
	}

	// Environment variables: SIGNALBOX_ENGINE_MIN_CONFIDENCE, SIGNALBOX_DELEGATE_BACKEND, etc.
	v.SetEnvPrefix("SIGNALBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Delegate.OpenAI.APIKey = resolveEnvRef(cfg.Delegate.OpenAI.APIKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the daemon could not start with.
func (c *Config) validate() error {
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be within [0, 1], got %v", c.Engine.MinConfidence)
	}
	switch c.Delegate.Backend {
	case "", "openai":
	default:
		return fmt.Errorf("unknown delegate backend %q", c.Delegate.Backend)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path must be set when the store is enabled")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
