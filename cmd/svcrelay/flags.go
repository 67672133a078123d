package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var flagReload bool

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "read or rewrite the unit's startup flags",
}

var flagsGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "print the flags following the launch prefix in ExecStart",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags, err := config.FlagsCodec().ReadFlags(serviceArg(args))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(flags))
		return nil
	},
}

var flagsSetCmd = &cobra.Command{
	Use:   "set [name] -- <flags>",
	Short: "replace the flags of every ExecStart directive",
	RunE:  doFlagsSet,
}

var flagsWatchCmd = &cobra.Command{
	Use:   "watch [name]",
	Short: "print the flags whenever the unit file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doFlagsWatch,
}

func init() {
	flagsSetCmd.Flags().BoolVar(&flagReload, "reload", false, "run daemon-reload after rewriting")
	flagsCmd.AddCommand(flagsGetCmd, flagsSetCmd, flagsWatchCmd)
}

func doFlagsSet(cmd *cobra.Command, args []string) error {
	// Flags that look like options must follow "--".
	var name string
	flags := args
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		if dash > 1 {
			return fmt.Errorf("expected at most one unit name before --, got %d", dash)
		}
		if dash == 1 {
			name = args[0]
		}
		flags = args[dash:]
	} else if len(args) > 0 {
		name, flags = args[0], args[1:]
	}

	if err := config.FlagsCodec().WriteFlags(serviceArg([]string{name}), strings.Join(flags, " ")); err != nil {
		return err
	}
	if flagReload {
		return config.Controller().DaemonReload(cmd.Context())
	}
	return nil
}

func doFlagsWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	events, cleanup, err := config.FlagsCodec().WatchFlags(ctx, serviceArg(args))
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return ev.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ev.Unit, strings.TrimSpace(ev.Flags))
		}
	}
}
