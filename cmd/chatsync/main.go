package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vortelan/chatsync/internal/app"
	"github.com/vortelan/chatsync/internal/config"
	"github.com/vortelan/chatsync/internal/log"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "chatsync",
		Short:         "Client-side synchronization engine for the chat service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(),
		newSignupCmd(),
		newVerifyCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newChatsCmd(),
		newOpenCmd(),
		newSendCmd(),
		newReadCmd(),
		newWatchCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config, builds the engine and confirms any stored session.
func setup(ctx context.Context) (*app.App, *zerolog.Logger, error) {
	bootLog := log.New("info")
	cfg, _, err := config.Load(bootLog, flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger := log.New(cfg.LogLevel)
	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	engine.Gate.CheckAuth(ctx)
	return engine, logger, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
