package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/example/glovo-scheduler/internal/config"
	"github.com/example/glovo-scheduler/internal/credentials"
	"github.com/example/glovo-scheduler/internal/session"
	"github.com/spf13/cobra"
)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored courier credentials",
	}
	cmd.AddCommand(newCredentialsImportCmd())
	cmd.AddCommand(newCredentialsShowCmd())
	return cmd
}

func newCredentialsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <device.json>",
		Short: "Copy a device.json credential file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cred, err := credentials.Unmarshal(b)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			ctx := context.Background()
			store, closeStore, err := openStore(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Save(ctx, cred); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported credentials into %s store\n", cfg.CredentialsStore)
			return nil
		},
	}
}

func newCredentialsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored token expiry and header names (never the tokens)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := context.Background()
			store, closeStore, err := openStore(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer closeStore()

			cred, err := store.Load(ctx)
			if err != nil {
				return err
			}
			writeCredentialSummary(cmd, cfg.CredentialsStore, cred, time.Now())
			return nil
		},
	}
}

func writeCredentialSummary(cmd *cobra.Command, storeName string, cred credentials.Credential, now time.Time) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "store:   %s\n", storeName)
	if exp, err := session.TokenExpiry(cred.AccessToken); err != nil {
		fmt.Fprintf(out, "expires: unknown (%v)\n", err)
	} else if !exp.After(now) {
		fmt.Fprintf(out, "expires: %s (expired)\n", exp.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintf(out, "expires: %s (in %s)\n", exp.UTC().Format(time.RFC3339), exp.Sub(now).Round(time.Second))
	}

	names := make([]string, 0, len(cred.Headers))
	for k := range cred.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintf(out, "headers: %d\n", len(names))
	for _, k := range names {
		fmt.Fprintf(out, "  %s\n", k)
	}
}
