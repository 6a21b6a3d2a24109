package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusion-sync/internal/adapters/driven/auth"
	httpserver "github.com/custodia-labs/fusion-sync/internal/adapters/driving/http"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
	"github.com/custodia-labs/fusion-sync/internal/core/services"
)

var (
	serveHost    string
	servePort    int
	serveOrigins []string
	serveEvery   time.Duration
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the operations HTTP API",
		Long: `Start the HTTP API used to trigger, monitor and cancel sync runs.

When http.api_secret (or API_SECRET) is set every /api/v1 route requires a
Bearer token signed with that secret; see "fusion-sync token". Health routes
are always public. With --interval (or sync.interval) a run using the
configured sync options starts on that schedule; ticks that find a run in
progress are skipped. On SIGINT/SIGTERM the server stops accepting requests and
cancels the active run, which still logs itself before exiting.`,
		Example: `  fusion-sync serve
  fusion-sync serve --port 9090
  fusion-sync serve --interval 1h
  API_SECRET=change-me fusion-sync serve`,
		RunE: serveRun,
	}

	cmd.Flags().StringVar(&serveHost, "host", "", "address to listen on (overrides http.host)")
	cmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides http.port)")
	cmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins")
	cmd.Flags().DurationVar(&serveEvery, "interval", 0, "start a sync run on this interval (overrides sync.interval)")

	return cmd
}

func serveRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	if cmd.Flags().Changed("host") {
		globalCfg.HTTP.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		globalCfg.HTTP.Port = servePort
	}
	if cmd.Flags().Changed("interval") {
		globalCfg.Sync.Interval = serveEvery
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, globalCfg, logger)
	if err != nil {
		return err
	}
	globalApp = a

	var authority driven.TokenAuthority
	if globalCfg.HTTP.APISecret != "" {
		authority = auth.NewAdapter(globalCfg.HTTP.APISecret)
	} else {
		logger.Warn("http.api_secret not set; the operations API is unauthenticated")
	}

	srv := httpserver.NewServer(httpserver.Config{
		Host:           globalCfg.HTTP.Host,
		Port:           globalCfg.HTTP.Port,
		Version:        version,
		AllowedOrigins: serveOrigins,
		Logger:         logger.With("component", "http"),
	}, a.service, authority, a.checks)

	var scheduler *services.Scheduler
	if globalCfg.Sync.Interval > 0 {
		opts, err := globalCfg.Sync.RunOptions()
		if err != nil {
			return err
		}
		scheduler, err = services.NewScheduler(services.SchedulerConfig{
			Service:  a.service,
			Options:  opts,
			Interval: globalCfg.Sync.Interval,
			Logger:   logger.With("component", "scheduler"),
		})
		if err != nil {
			return err
		}
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
	}

	runErr := srv.Run(ctx)

	if scheduler != nil {
		scheduler.Stop()
	}

	// Stop the active run, if any, and let it finish logging.
	if err := a.service.Cancel(context.Background()); err == nil {
		logger.Info("cancelled active sync run")
	}
	a.Wait()

	return runErr
}
