package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/axondata/go-svcrelay"
)

var logsCmd = &cobra.Command{
	Use:   "logs [name]",
	Short: "follow the unit's journal until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doLogs,
}

func doLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	sup := config.Supervisor(svcrelay.SinkFunc(func(_ context.Context, line svcrelay.LogLine) error {
		_, err := fmt.Fprintln(out, line.Text)
		return err
	}))
	defer func() {
		if err := sup.Close(); err != nil {
			slog.ErrorContext(ctx, "stopping log stream", "error", err)
		}
	}()

	if err := sup.Start(ctx, serviceArg(args)); err != nil {
		return err
	}
	info, ok := sup.Active()
	if !ok {
		return nil
	}

	select {
	case <-ctx.Done():
		return nil
	case <-info.Done:
		return fmt.Errorf("log follower for %s exited", info.Unit)
	}
}
