package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TransportWAHA     = "waha"
	TransportTelegram = "telegram"
)

// Config keeps runtime settings for the bot.
type Config struct {
	BotName       string
	Prefix        string
	DatabaseURL   string
	Transport     string
	TelegramToken string
	WAHA          WAHAConfig
	HTTP          HTTPConfig
	Scheduler     SchedulerConfig
	Logger        LoggerConfig
}

type WAHAConfig struct {
	URL        string
	Token      string
	Session    string
	WebhookURL string
	RatePerSec int
}

type HTTPConfig struct {
	Host string
	Port string
}

type SchedulerConfig struct {
	TickInterval    time.Duration
	DispatchTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		BotName:       getString("BOT_NAME", "Deadline Buddy"),
		Prefix:        strings.TrimSpace(getString("BOT_PREFIX", "!")),
		DatabaseURL:   strings.TrimSpace(getString("DATABASE_URL", "data/schedules.db")),
		Transport:     strings.ToLower(strings.TrimSpace(getString("TRANSPORT", TransportWAHA))),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		WAHA: WAHAConfig{
			URL:        strings.TrimRight(getString("WAHA_URL", "http://waha:3000"), "/"),
			Token:      strings.TrimSpace(os.Getenv("WAHA_TOKEN")),
			Session:    getString("WAHA_SESSION_NAME", "default"),
			WebhookURL: getString("WAHA_WEBHOOK_URL", "http://reminder-bot:5555/api/webhook"),
			RatePerSec: getInt("WAHA_RATE_PER_SEC", 5),
		},
		HTTP: HTTPConfig{
			Host: getString("SERVER_HOST", "0.0.0.0"),
			Port: getString("PORT", "5555"),
		},
		Scheduler: SchedulerConfig{
			TickInterval:    getDuration("REMINDER_TICK_INTERVAL", time.Minute),
			DispatchTimeout: getDuration("DISPATCH_TIMEOUT", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	if cfg.Prefix == "" {
		return cfg, fmt.Errorf("BOT_PREFIX must not be empty")
	}

	switch cfg.Transport {
	case TransportWAHA:
	case TransportTelegram:
		if cfg.TelegramToken == "" {
			return cfg, fmt.Errorf("TELEGRAM_TOKEN is required for the telegram transport")
		}
	default:
		return cfg, fmt.Errorf("unknown TRANSPORT %q, expected %s or %s", cfg.Transport, TransportWAHA, TransportTelegram)
	}

	if cfg.Scheduler.TickInterval <= 0 {
		cfg.Scheduler.TickInterval = time.Minute
	}
	if cfg.Scheduler.DispatchTimeout <= 0 {
		cfg.Scheduler.DispatchTimeout = 15 * time.Second
	}
	if cfg.WAHA.RatePerSec <= 0 {
		cfg.WAHA.RatePerSec = 5
	}

	return cfg, nil
}

// Address returns the HTTP listen address.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
