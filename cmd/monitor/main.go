package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-feed-monitor/internal/app"
	"github.com/samvad-hq/samvad-feed-monitor/internal/config"
	"github.com/samvad-hq/samvad-feed-monitor/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "monitor",
		Short:         "Poll RSS feeds, draft scripts for relevant news and notify channels",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("monitor starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor, err := app.NewMonitor(ctx, cfg, log, app.Options{Out: cmd.OutOrStdout()})
	if err != nil {
		logger.ErrorObj("failed to initialize monitor", "error", err.Error())
		return err
	}

	if _, err := monitor.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.WarnObj("monitor interrupted", "reason", err.Error())
			return nil
		}
		return fmt.Errorf("monitor run: %w", err)
	}
	return nil
}
