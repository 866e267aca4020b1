package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/example/glovo-scheduler/internal/config"
	"github.com/example/glovo-scheduler/internal/credentials"
	"github.com/example/glovo-scheduler/internal/crypto"
	"github.com/example/glovo-scheduler/internal/db"
	"github.com/example/glovo-scheduler/internal/glovo"
	"github.com/example/glovo-scheduler/internal/migrate"
	"github.com/example/glovo-scheduler/internal/notify"
	"github.com/example/glovo-scheduler/internal/scheduler"
)

// openStore returns the credential store selected by CREDENTIALS_STORE and
// a func releasing whatever connection it holds.
func openStore(ctx context.Context, cfg config.Config, migrateUp bool) (credentials.Store, func(), error) {
	switch cfg.CredentialsStore {
	case config.StorePostgres:
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := d.Ping(ctx); err != nil {
			d.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if migrateUp {
			if err := migrate.Up(ctx, d); err != nil {
				d.Close()
				return nil, nil, err
			}
		}
		var aead *crypto.AEAD
		if cfg.CredEncKey != nil {
			if aead, err = crypto.New(cfg.CredEncKey); err != nil {
				d.Close()
				return nil, nil, err
			}
		} else {
			log.Printf("cmd: CRED_ENC_KEY not set, tokens are stored in plaintext")
		}
		return credentials.NewPostgresStore(d, aead), d.Close, nil

	case config.StoreRedis:
		s := credentials.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return s, func() { _ = s.Close() }, nil

	default:
		return credentials.NewFileStore(cfg.CredentialsFile), func() {}, nil
	}
}

func newClient(cfg config.Config, cred credentials.Credential) *glovo.Client {
	return glovo.New(cred,
		glovo.WithBaseURL(cfg.BaseURL),
		glovo.WithAPIVersion(cfg.APIVersion),
		glovo.WithTimeout(cfg.HTTPTimeout),
	)
}

func newNotifier(cfg config.Config) scheduler.Notifier {
	if cfg.TelegramToken == "" {
		log.Printf("cmd: TELEGRAM_BOT_TOKEN not set, notifications go to the log only")
		return notify.Log{}
	}
	return notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
}
