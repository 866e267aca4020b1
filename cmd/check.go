package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/glovo-scheduler/internal/notify"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single cycle and list the slots that would be booked, without booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s, closeStore, err := setup(ctx, cmd, &f)
			if err != nil {
				return err
			}
			defer closeStore()

			s.DryRun = true
			s.Notifier = notify.Log{}
			res, err := s.RunCycle(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d desired slots booked\n", res.Secured, res.Target)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
