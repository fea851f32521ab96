// Command sniperd is the trading pipeline daemon: it wires every
// component via internal/factory, runs the boot-time recovery pass,
// then starts the detector (C8), orchestrator (C9), and snipe worker
// (C10) concurrently until terminated.
//
// Grounded on the teacher's cmd/server/main.go: load config, build the
// dependency graph, start background components in goroutines, serve an
// HTTP surface, and shut down gracefully on SIGINT/SIGTERM. This daemon
// has no HTTP API beyond /metrics (spec §1 names the HTTP API/auth
// surface as explicitly out of scope), so the "router" here is just the
// Prometheus handler. The command itself is a cobra root command, the
// same framework the teacher's cmd/cli/commands/root.go builds its
// entrypoint on, generalized from a multi-subcommand CLI to a single
// long-running command with flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/BrowningVC/Migratorrr-sub000/internal/config"
	"github.com/BrowningVC/Migratorrr-sub000/internal/factory"
)

const shutdownTimeout = 15 * time.Second

var recoverySweepCron string

func main() {
	root := &cobra.Command{
		Use:   "sniperd",
		Short: "Solana migration-sniping pipeline daemon",
		Long:  "Runs the migration detector, snipe orchestrator, and snipe worker until terminated.",
		RunE:  runDaemon,
	}
	root.Flags().StringVar(&recoverySweepCron, "recovery-sweep-cron", "@every 5m",
		"cron schedule for the periodic stuck-selling recovery sweep, in addition to the one run at boot")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	deps, err := factory.New(cfg)
	if err != nil {
		return fmt.Errorf("wire dependencies: %w", err)
	}
	log := deps.Logger
	log.Info().Msg("starting sniper pipeline daemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := deps.Recovery.Run(ctx); err != nil {
		return fmt.Errorf("boot-time recovery pass: %w", err)
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(recoverySweepCron, func() {
		if err := deps.Recovery.Run(ctx); err != nil {
			log.Error().Err(err).Msg("periodic recovery sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule recovery sweep %q: %w", recoverySweepCron, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	go deps.Blockhash.Run(ctx)

	errs := make(chan error, 5)
	go func() { errs <- runLabeled("eventbus", deps.Bus.Run(ctx)) }()
	go func() { errs <- runLabeled("detector", deps.Detector.Run(ctx)) }()
	go func() { errs <- runLabeled("orchestrator", deps.Orchestrator.Run(ctx)) }()
	go func() { errs <- runLabeled("worker", deps.Worker.Run(ctx)) }()

	metricsSrv := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: deps.Metrics.Handler(),
	}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- runLabeled("metrics server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errs:
		log.Error().Err(err).Msg("component exited unexpectedly, shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server forced to shutdown")
	}

	log.Info().Msg("sniper pipeline daemon exited")
	return nil
}

func runLabeled(component string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return errors.New(component + ": " + err.Error())
}
