package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/axondata/go-svcrelay/internal/api"
	"github.com/axondata/go-svcrelay/internal/relay"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the control API and the websocket event feed",
	Args:  cobra.NoArgs,
	RunE:  doServe,
}

func doServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	hub := relay.NewHub(0)
	defer func() { _ = hub.Close() }()

	sup := config.Supervisor(hub)
	defer func() { _ = sup.Close() }()

	codec := config.FlagsCodec()
	events, cleanup, err := codec.WatchFlags(ctx, config.Service)
	if err != nil {
		slog.WarnContext(ctx, "flags watch unavailable", "error", err)
	} else {
		defer func() { _ = cleanup() }()
		go func() {
			for ev := range events {
				if ev.Err != nil {
					slog.DebugContext(ctx, "flags watch", "error", ev.Err)
					continue
				}
				_ = hub.Publish(relay.FlagsEventName, ev)
			}
		}()
	}

	srv := api.New(config.Listen, config.Controller(), codec, sup, hub)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	slog.InfoContext(ctx, "svcrelay listening", "addr", config.Listen, "service", config.Service)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
