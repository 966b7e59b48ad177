// Package config loads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seann-Moser/waconnect/oauth/graph"
	"github.com/Seann-Moser/waconnect/oauth/replay"
	"github.com/Seann-Moser/waconnect/oauth/whatsapp"
	"github.com/Seann-Moser/waconnect/utils"
	"github.com/joho/godotenv"
)

type Config struct {
	Meta    MetaConfig
	App     AppConfig
	HTTP    HTTPConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

// MetaConfig is the Meta app used for the OAuth dialog and Graph calls.
type MetaConfig struct {
	AppID                  string
	AppSecret              string
	APIVersion             string
	EmbeddedSignupConfigID string
	OAuthBaseURL           string
	GraphBaseURL           string
	Timeout                time.Duration
}

type AppConfig struct {
	BaseURL       string
	StateSecret   string
	AssistantPath string
	FallbackPath  string
}

type HTTPConfig struct {
	Addr string
}

type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig is optional; with no address the replay guard is in memory.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	CodeClaimTTL time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Meta: MetaConfig{
			AppID:                  getEnv("META_APP_ID", ""),
			AppSecret:              getEnv("META_APP_SECRET", ""),
			APIVersion:             getEnv("META_API_VERSION", graph.DefaultAPIVersion),
			EmbeddedSignupConfigID: getEnv("META_EMBEDDED_SIGNUP_CONFIG_ID", ""),
			OAuthBaseURL:           getEnv("META_OAUTH_BASE_URL", graph.DefaultOAuthBaseURL),
			GraphBaseURL:           getEnv("META_GRAPH_BASE_URL", graph.DefaultGraphBaseURL),
			Timeout:                getEnvDuration("META_HTTP_TIMEOUT", graph.DefaultTimeout),
		},
		App: AppConfig{
			BaseURL:       strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
			StateSecret:   getEnv("STATE_SECRET", ""),
			AssistantPath: getEnv("UI_ASSISTANT_PATH", whatsapp.DefaultAssistantPath),
			FallbackPath:  getEnv("UI_FALLBACK_PATH", whatsapp.DefaultFallbackPath),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DATABASE", "waconnect"),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			CodeClaimTTL: getEnvDuration("CODE_CLAIM_TTL", replay.DefaultTTL),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the service unusable. A missing
// Meta app is not an error here: the flow reports it per request.
func (c *Config) Validate() error {
	if !utils.ValidAbsoluteURL(c.App.BaseURL) {
		return fmt.Errorf("APP_BASE_URL must be an absolute http(s) URL")
	}
	if !utils.ValidAbsoluteURL(c.Meta.OAuthBaseURL) {
		return fmt.Errorf("META_OAUTH_BASE_URL must be an absolute http(s) URL")
	}
	if !utils.ValidAbsoluteURL(c.Meta.GraphBaseURL) {
		return fmt.Errorf("META_GRAPH_BASE_URL must be an absolute http(s) URL")
	}
	if c.Meta.Timeout <= 0 {
		return fmt.Errorf("META_HTTP_TIMEOUT must be positive")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if !strings.HasPrefix(c.App.AssistantPath, "/") || !strings.HasPrefix(c.App.FallbackPath, "/") {
		return fmt.Errorf("UI_ASSISTANT_PATH and UI_FALLBACK_PATH must start with /")
	}
	return nil
}

// CallbackURL is the redirect URI registered with Meta.
func (c *Config) CallbackURL() string {
	return c.App.BaseURL + whatsapp.CallbackPath
}

// NewLogger builds the service logger writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(l.Level)}
	var handler slog.Handler
	if strings.ToLower(l.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
