package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the distribution service.
type AppConfig struct {
	DatabaseURL   string
	SiteURL       string // canonical portal base URL, e.g. https://notasprensa.example
	TriggerSecret string // shared secret for the publish trigger webhook
	HTTPPort      int
	OperationalTZ string
	LogLevel      string
	Environment   string

	// Destinations. The primary page is required; the secondary/mirror page is
	// optional and only registered when both its id and token are present.
	PrimaryPageID      string
	PrimaryPageToken   string
	PrimaryMinGap      time.Duration
	SecondaryPageID    string
	SecondaryPageToken string
	SecondaryMinGap    time.Duration
	DefaultDestination string

	GraphAPIBaseURL string
	DeliveryTimeout time.Duration

	// Backfill audit trigger.
	CronSpecBackfillAudit string
	BackfillLookbackHours int
	BackfillAutoExecute   bool

	// Operator alerting (optional; disabled when token or chat id is unset).
	TelegramToken string
	AdminChatID   int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.SiteURL = strings.TrimRight(os.Getenv("SITE_URL"), "/")
	if cfg.SiteURL == "" {
		return nil, fmt.Errorf("SITE_URL is not set")
	}

	cfg.TriggerSecret = os.Getenv("TRIGGER_SECRET")
	if cfg.TriggerSecret == "" {
		return nil, fmt.Errorf("TRIGGER_SECRET is not set")
	}

	cfg.PrimaryPageID = os.Getenv("FB_PRIMARY_PAGE_ID")
	if cfg.PrimaryPageID == "" {
		return nil, fmt.Errorf("FB_PRIMARY_PAGE_ID is not set")
	}
	cfg.PrimaryPageToken = os.Getenv("FB_PRIMARY_PAGE_TOKEN")
	if cfg.PrimaryPageToken == "" {
		return nil, fmt.Errorf("FB_PRIMARY_PAGE_TOKEN is not set")
	}
	cfg.SecondaryPageID = os.Getenv("FB_SECONDARY_PAGE_ID")
	cfg.SecondaryPageToken = os.Getenv("FB_SECONDARY_PAGE_TOKEN")

	cfg.PrimaryMinGap, err = minutesEnv("FB_PRIMARY_MIN_GAP_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.SecondaryMinGap, err = minutesEnv("FB_SECONDARY_MIN_GAP_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	cfg.DefaultDestination = os.Getenv("DEFAULT_DESTINATION")
	if cfg.DefaultDestination == "" {
		cfg.DefaultDestination = "primary"
	}

	cfg.HTTPPort, err = intEnv("HTTP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	cfg.OperationalTZ = os.Getenv("OPERATIONAL_TZ")
	if cfg.OperationalTZ == "" {
		cfg.OperationalTZ = "America/Argentina/Buenos_Aires"
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.GraphAPIBaseURL = os.Getenv("GRAPH_API_BASE_URL")
	if cfg.GraphAPIBaseURL == "" {
		cfg.GraphAPIBaseURL = "https://graph.facebook.com/v19.0"
	}

	deliveryTimeoutSec, err := intEnv("DELIVERY_TIMEOUT_SECONDS", 20)
	if err != nil {
		return nil, err
	}
	cfg.DeliveryTimeout = time.Duration(deliveryTimeoutSec) * time.Second

	cfg.CronSpecBackfillAudit = os.Getenv("CRON_SPEC_BACKFILL_AUDIT")
	if cfg.CronSpecBackfillAudit == "" {
		cfg.CronSpecBackfillAudit = "0 * * * *" // Default: hourly audit
	}
	cfg.BackfillLookbackHours, err = intEnv("BACKFILL_LOOKBACK_HOURS", 72)
	if err != nil {
		return nil, err
	}
	cfg.BackfillAutoExecute = strings.EqualFold(os.Getenv("BACKFILL_AUTO_EXECUTE"), "true")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	adminChatStr := os.Getenv("ADMIN_CHAT_ID")
	if adminChatStr != "" {
		cfg.AdminChatID, err = strconv.ParseInt(adminChatStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that a plain presence check cannot express.
func (c *AppConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HTTPPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.PrimaryMinGap, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.SecondaryMinGap, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.BackfillLookbackHours, validation.Required, validation.Min(1), validation.Max(720)),
		validation.Field(&c.DefaultDestination, validation.Required, validation.In("primary", "secondary")),
	)
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func minutesEnv(name string, fallbackMinutes int) (time.Duration, error) {
	v, err := intEnv(name, fallbackMinutes)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Minute, nil
}
