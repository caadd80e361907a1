package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raine/listing-digest/internal/fetch"
	"github.com/raine/listing-digest/internal/llm"
	"github.com/raine/listing-digest/internal/pipeline"
)

const (
	AppName     = "listing-digest"
	EnvFileName = "config.env"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	Port         int
	LogLevel     string
	LogFile      string
	GeminiAPIKey string
	GeminiModel  string

	MaxUploadBytes int64
	Fetch          fetch.Options
	Pipeline       pipeline.Config
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and from .env in the working directory. Errors are ignored
// since the files may not exist. Variables already set are not overridden.
func LoadEnvFile() {
	_ = godotenv.Load(".env")

	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// CheckRequiredConfig returns the names of required variables that are unset.
func CheckRequiredConfig() []string {
	var missing []string
	if os.Getenv("GEMINI_API_KEY") == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	return missing
}

// Load builds a Config from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           10000,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", llm.DefaultGeminiModel),
		MaxUploadBytes: 50 * 1024 * 1024,
		Fetch: fetch.Options{
			AllowedDomain: getEnv("FETCH_ALLOWED_DOMAIN", fetch.DefaultAllowedDomain),
			Timeout:       fetch.DefaultTimeout,
			MaxBytes:      fetch.DefaultMaxBytes,
		},
		Pipeline: pipeline.DefaultConfig(),
	}

	var err error
	if cfg.Port, err = getInt("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = getInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes); err != nil {
		return nil, err
	}
	if cfg.Fetch.Timeout, err = getDuration("FETCH_TIMEOUT", cfg.Fetch.Timeout); err != nil {
		return nil, err
	}
	if cfg.Fetch.MaxBytes, err = getInt64("FETCH_MAX_BYTES", cfg.Fetch.MaxBytes); err != nil {
		return nil, err
	}

	p := &cfg.Pipeline
	if p.Limits.MinHTMLLength, err = getInt("MIN_HTML_LENGTH", p.Limits.MinHTMLLength); err != nil {
		return nil, err
	}
	if p.Limits.MaxImages, err = getInt("MAX_IMAGES", p.Limits.MaxImages); err != nil {
		return nil, err
	}
	if p.Prompt.HTMLEmbedLimit, err = getInt("HTML_EMBED_LIMIT", p.Prompt.HTMLEmbedLimit); err != nil {
		return nil, err
	}
	if p.RequireProductName, err = getBool("REQUIRE_PRODUCT_NAME", p.RequireProductName); err != nil {
		return nil, err
	}
	if p.Prompt.Bullets, err = pipeline.ParseBulletFormat(os.Getenv("BULLET_FORMAT")); err != nil {
		return nil, fmt.Errorf("invalid BULLET_FORMAT: %w", err)
	}

	// A fetched page must fit in the parser.
	if p.Rules.MaxParseBytes < cfg.Fetch.MaxBytes {
		p.Rules.MaxParseBytes = cfg.Fetch.MaxBytes
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 10s: %w", key, err)
	}
	return d, nil
}
