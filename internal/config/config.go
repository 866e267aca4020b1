package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/glovo-scheduler/internal/crypto"
	"github.com/example/glovo-scheduler/internal/selection"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	// upstream
	BaseURL     string
	APIVersion  int
	HTTPTimeout time.Duration

	// scheduler
	PollInterval time.Duration
	BookNonRush  bool
	ScheduleFile string

	// notifier
	TelegramToken  string
	TelegramChatID string

	// credential store
	CredentialsStore string
	CredentialsFile  string
	DatabaseURL      string
	CredEncKey       []byte
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:          getenv("GLOVO_BASE_URL", "https://api.glovoapp.com"),
		ScheduleFile:     getenv("SCHEDULE_FILE", "schedule.yaml"),
		TelegramToken:    strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramChatID:   strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		CredentialsStore: strings.ToLower(getenv("CREDENTIALS_STORE", StoreFile)),
		CredentialsFile:  getenv("CREDENTIALS_FILE", "device.json"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.APIVersion, err = strconv.Atoi(getenv("GLOVO_API_VERSION", "4")); err != nil || cfg.APIVersion < 1 {
		return Config{}, fmt.Errorf("invalid GLOVO_API_VERSION")
	}

	timeoutSec, err := strconv.Atoi(getenv("HTTP_TIMEOUT_SECONDS", "20"))
	if err != nil || timeoutSec < 1 {
		return Config{}, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS")
	}
	cfg.HTTPTimeout = time.Duration(timeoutSec) * time.Second

	pollSec, err := strconv.Atoi(getenv("CHECK_INTERVAL_SECONDS", "60"))
	if err != nil || pollSec < 1 {
		return Config{}, fmt.Errorf("invalid CHECK_INTERVAL_SECONDS")
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second

	if cfg.BookNonRush, err = strconv.ParseBool(getenv("BOOK_NON_RUSH", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid BOOK_NON_RUSH: %w", err)
	}

	if cfg.RedisDB, err = strconv.Atoi(getenv("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB")
	}

	if k := strings.TrimSpace(os.Getenv("CRED_ENC_KEY")); k != "" {
		if cfg.CredEncKey, err = crypto.ParseKey(k); err != nil {
			return Config{}, fmt.Errorf("CRED_ENC_KEY: %w", err)
		}
		if len(cfg.CredEncKey) != 32 {
			return Config{}, fmt.Errorf("CRED_ENC_KEY must decode to 32 bytes (got %d)", len(cfg.CredEncKey))
		}
	}

	switch cfg.CredentialsStore {
	case StoreFile:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when CREDENTIALS_STORE=postgres")
		}
	case StoreRedis:
	default:
		return Config{}, fmt.Errorf("invalid CREDENTIALS_STORE %q (want file, postgres or redis)", cfg.CredentialsStore)
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID == "" {
		return Config{}, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}

var weekdays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

// LoadSchedule reads the desired schedule, a YAML mapping of
// zone -> weekday -> list of "HH:MM" start times:
//
//	Barcelona Centro:
//	  Monday: ["13:00", "14:00"]
//	  Friday: ["20:00"]
//
// Entries that can never match a calendar slot are logged, not rejected.
func LoadSchedule(path string) (selection.Schedule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s selection.Schedule
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if s == nil {
		s = selection.Schedule{}
	}
	for zone, days := range s {
		for day, times := range days {
			if !weekdays[day] {
				log.Printf("config: schedule zone %q: %q is not a weekday name, it will never match", zone, day)
			}
			for _, t := range times {
				if _, err := time.Parse("15:04", t); err != nil {
					log.Printf("config: schedule zone %q %s: %q is not HH:MM, it will never match", zone, day, t)
				}
			}
		}
	}
	return s, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
