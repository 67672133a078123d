package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/axondata/go-svcrelay"
	"github.com/axondata/go-svcrelay/internal/log"
)

var (
	configPath string // actual config file used (if loaded)
	config     svcrelay.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is svcrelay/config.yaml in the user config directory")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRunE = initRelay

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd, stopCmd, restartCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(flagsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("svcrelay failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "svcrelay",
	Short:        "Control a user systemd service and relay its journal",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information",
	Run: func(cmd *cobra.Command, args []string) {
		v := svcrelay.GetVersion()
		fmt.Printf("svcrelay: %s\n", v.Version)
		fmt.Printf("manager:  %s\n", v.Manager)
		fmt.Printf("logs:     %s\n", v.LogBackend)
		if configPath != "" {
			fmt.Printf("config:   %s\n", configPath)
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Printf("go:       %s\n", info.GoVersion)
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					fmt.Printf("commit:   %s\n", s.Value)
				}
			}
		}
	},
}

func initRelay(cmd *cobra.Command, _ []string) error {
	slog.SetDefault(log.New(flagVerbose))

	switch {
	case os.Getenv("SVCRELAYCONFIG") != "":
		configPath = os.Getenv("SVCRELAYCONFIG")
	case flagConfigFilePath != "":
		configPath = flagConfigFilePath
	default:
		path, err := svcrelay.DefaultConfigPath()
		if err != nil {
			slog.Debug("no user config directory, using defaults", "error", err)
		}
		configPath = path
	}

	var err error
	config, err = svcrelay.LoadConfig(configPath)
	if err != nil {
		return err
	}

	slog.Debug("svcrelay run", "configPath", configPath, "config", config)
	return nil
}

// serviceArg returns the first positional argument or the configured service
func serviceArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return config.Service
}
