package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/glovo-scheduler/internal/config"
	"github.com/example/glovo-scheduler/internal/internaltypes"
	"github.com/example/glovo-scheduler/internal/scheduler"
	"github.com/example/glovo-scheduler/internal/session"
	"github.com/spf13/cobra"
)

type runFlags struct {
	interval    time.Duration
	bookNonRush bool
	schedule    string
	migrateUp   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.interval, "interval", 0, "base delay between checks (overrides CHECK_INTERVAL_SECONDS)")
	cmd.Flags().BoolVar(&f.bookNonRush, "book-non-rush", false, "also book slots without the RUSH tag (overrides BOOK_NON_RUSH)")
	cmd.Flags().StringVar(&f.schedule, "schedule", "", "path to the desired schedule YAML (overrides SCHEDULE_FILE)")
	cmd.Flags().BoolVar(&f.migrateUp, "migrate", true, "run database migrations on startup (postgres store)")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
}

// apply lays explicitly set flags over the environment config.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("interval") {
		cfg.PollInterval = f.interval
	}
	if cmd.Flags().Changed("book-non-rush") {
		cfg.BookNonRush = f.bookNonRush
	}
	if cmd.Flags().Changed("schedule") {
		cfg.ScheduleFile = f.schedule
	}
}

// setup loads config, schedule and stored credentials and builds a scheduler
// around them. The returned func closes the credential store.
func setup(ctx context.Context, cmd *cobra.Command, f *runFlags) (*scheduler.Scheduler, func(), error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	f.apply(cmd, &cfg)
	if cfg.PollInterval <= 0 {
		return nil, nil, fmt.Errorf("--interval must be positive")
	}

	sched, err := config.LoadSchedule(cfg.ScheduleFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load schedule: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, f.migrateUp)
	if err != nil {
		return nil, nil, err
	}
	cred, err := store.Load(ctx)
	if err != nil {
		closeStore()
		if errors.Is(err, internaltypes.ErrNotFound) {
			return nil, nil, fmt.Errorf("no stored credentials (%s store); run `glovosched credentials import`", cfg.CredentialsStore)
		}
		return nil, nil, fmt.Errorf("load credentials: %w", err)
	}

	client := newClient(cfg, cred)
	s := &scheduler.Scheduler{
		Session:      session.New(client, store, cred),
		Calendar:     client,
		Slots:        client,
		Notifier:     newNotifier(cfg),
		Schedule:     sched,
		AllowNonRush: cfg.BookNonRush,
		Interval:     cfg.PollInterval,
	}
	return s, closeStore, nil
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the calendar and book desired slots until all are secured",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, closeStore, err := setup(ctx, cmd, &f)
			if err != nil {
				return err
			}
			defer closeStore()

			reason, err := s.Run(ctx)
			log.Printf("scheduler: stopped (%s)", reason)
			switch reason {
			case scheduler.ReasonAllSecured, scheduler.ReasonCanceled:
				return nil
			default:
				return err
			}
		},
	}
	f.register(cmd)
	return cmd
}
