package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/axondata/go-svcrelay"
)

var flagWait bool

var statusCmd = &cobra.Command{
	Use:   "status [name...]",
	Short: "print the active state of one or more units",
	RunE:  doStatus,
}

var startCmd = &cobra.Command{
	Use:   "start [name]",
	Short: "queue a start job for the unit",
	Args:  cobra.MaximumNArgs(1),
	RunE:  controlRunE((*svcrelay.ClientSystemd).Start),
}

var stopCmd = &cobra.Command{
	Use:   "stop [name]",
	Short: "queue a stop job for the unit",
	Args:  cobra.MaximumNArgs(1),
	RunE:  controlRunE((*svcrelay.ClientSystemd).Stop),
}

var restartCmd = &cobra.Command{
	Use:   "restart [name]",
	Short: "queue a restart job for the unit",
	Args:  cobra.MaximumNArgs(1),
	RunE:  controlRunE((*svcrelay.ClientSystemd).Restart),
}

func init() {
	for _, c := range []*cobra.Command{startCmd, stopCmd, restartCmd} {
		c.Flags().BoolVar(&flagWait, "wait", false, "poll status until the unit settles")
	}
}

func doStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ctl := config.Controller()
	if !ctl.Available() {
		slog.WarnContext(ctx, "systemd does not appear to be the running init system")
	}

	if len(args) <= 1 {
		unit := svcrelay.UnitName(serviceArg(args))
		status, err := ctl.Status(ctx, unit)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", unit, status)
		return nil
	}

	statuses, err := config.Manager().Status(ctx, args...)
	for _, name := range args {
		unit := svcrelay.UnitName(name)
		if status, ok := statuses[unit]; ok {
			fmt.Printf("%s\t%s\n", unit, status)
		}
	}
	return err
}

func controlRunE(op func(*svcrelay.ClientSystemd, context.Context, string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ctl := config.Controller()
		unit := svcrelay.UnitName(serviceArg(args))

		if err := op(ctl, ctx, unit); err != nil {
			return err
		}
		if !flagWait {
			return nil
		}

		status, err := ctl.WaitSettled(ctx, unit, svcrelay.DefaultSettlePoll)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", unit, status)
		return nil
	}
}
