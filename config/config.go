package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "snapshelf"
	EnvFileName = "config.env"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

const (
	defaultDBPath        = "snapshelf.db"
	defaultIngestTimeout = 90 * time.Second
	defaultMaxImageBytes = 10 << 20
	defaultReminderDays  = 2
)

// Config holds the runtime settings read from the environment.
type Config struct {
	BotToken        string
	AdminTelegramID int64
	HTTPAddr        string
	JWTSecret       string
	DBPath          string

	VisionProvider string
	VisionModel    string
	GeminiAPIKey   string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	VisionCache    bool

	IngestTimeout time.Duration
	MaxImageBytes int64

	// ReminderDays is how many days before expiry Telegram users are
	// reminded. Zero disables reminders.
	ReminderDays int
}

// LoadEnvFile loads environment variables from ./.env and from the config
// file in the user's config directory. Variables already set in the
// environment win. Errors are ignored since the files may not exist.
func LoadEnvFile() {
	_ = godotenv.Load(".env")
	configPath, err := ConfigFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// ConfigFilePath returns the path of the user-level config file.
func ConfigFilePath() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName, EnvFileName), nil
}

// Load reads typed settings from the environment. It returns an error for
// values that are present but malformed; use Missing for absent ones.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:       os.Getenv("BOT_TOKEN"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		JWTSecret:      os.Getenv("JWT_SECRET_KEY"),
		DBPath:         envOr("SNAPSHELF_DB_PATH", defaultDBPath),
		VisionProvider: strings.ToLower(envOr("VISION_PROVIDER", ProviderGemini)),
		VisionModel:    os.Getenv("VISION_MODEL"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		VisionCache:    true,
		IngestTimeout:  defaultIngestTimeout,
		MaxImageBytes:  defaultMaxImageBytes,
		ReminderDays:   defaultReminderDays,
	}

	var errs []error

	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ADMIN_TELEGRAM_ID must be a valid integer: %w", err))
		}
		cfg.AdminTelegramID = id
	}

	if cfg.VisionProvider != ProviderGemini && cfg.VisionProvider != ProviderOpenAI {
		errs = append(errs, fmt.Errorf("VISION_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.VisionProvider))
	}

	if v := os.Getenv("VISION_CACHE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("VISION_CACHE must be a boolean: %w", err))
		}
		cfg.VisionCache = enabled
	}

	if v := os.Getenv("INGEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("INGEST_TIMEOUT must be a positive duration like 90s, got %q", v))
		} else {
			cfg.IngestTimeout = d
		}
	}

	if v := os.Getenv("MAX_IMAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("MAX_IMAGE_BYTES must be a positive integer, got %q", v))
		} else {
			cfg.MaxImageBytes = n
		}
	}

	if v := os.Getenv("REMINDER_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("REMINDER_DAYS must be a non-negative integer, got %q", v))
		} else {
			cfg.ReminderDays = n
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Missing returns the names of required variables that are not set. Which
// ones are required depends on the enabled front ends and vision provider.
func (c *Config) Missing() []string {
	var missing []string

	if c.BotToken == "" && c.HTTPAddr == "" {
		missing = append(missing, "BOT_TOKEN or HTTP_ADDR")
	}
	if c.BotToken != "" && c.AdminTelegramID == 0 {
		missing = append(missing, "ADMIN_TELEGRAM_ID")
	}
	if c.HTTPAddr != "" && c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}

	switch c.VisionProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	}

	return missing
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
