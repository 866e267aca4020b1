package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/example/glovo-scheduler/internal/config"
	"github.com/example/glovo-scheduler/internal/internaltypes"
	"github.com/example/glovo-scheduler/internal/session"
	"github.com/spf13/cobra"
)

func newPingCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the stored credentials are accepted by the courier API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()

			store, closeStore, err := openStore(ctx, cfg, migrateUp)
			if err != nil {
				return err
			}
			defer closeStore()

			cred, err := store.Load(ctx)
			if err != nil {
				return fmt.Errorf("load credentials: %w", err)
			}
			client := newClient(cfg, cred)
			if err := session.New(client, store, cred).EnsureFresh(ctx); err != nil {
				if !errors.Is(err, internaltypes.ErrPersist) {
					return err
				}
				log.Printf("cmd: %v", err)
			}

			me, err := client.Me(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(me)
		},
	}
	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup (postgres store)")
	return cmd
}
