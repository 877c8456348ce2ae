// Copyright 2026 The Pmbot Authors
// SPDX-License-Identifier: Apache-2.0

// Pmbot is a minimal Matrix chat bot. It authenticates with a bearer
// token from the environment, long-polls /sync, auto-joins rooms it is
// invited to, and echoes text messages back ("You said: <body>").
//
// Required environment: MATRIX_SERVER, MATRIX_BOT_USER,
// MATRIX_ACCESS_TOKEN. An optional .env file (--env-file) and YAML
// tuning file (--tuning) adjust credentials sourcing and loop timing.
//
// The process exits 0 on SIGINT/SIGTERM and non-zero when the sync
// loop reaches a fatal state (bad credentials, failure budget
// exhausted).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/pmbot-project/pmbot/bot"
	"github.com/pmbot-project/pmbot/lib/config"
	"github.com/pmbot-project/pmbot/lib/process"
	"github.com/pmbot-project/pmbot/lib/version"
	"github.com/pmbot-project/pmbot/messaging"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		envFile     string
		tuningFile  string
		logLevel    string
		showVersion bool
	)

	pflag.StringVar(&envFile, "env-file", "", "optional .env file with MATRIX_* credentials")
	pflag.StringVar(&tuningFile, "tuning", "", "optional YAML tuning file (timeouts, backoff, log level)")
	pflag.StringVar(&logLevel, "log-level", "", "override the tuning file log level (debug, info, warn, error)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.Full())
		return nil
	}

	cfg, err := config.Load(envFile, tuningFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Tuning.LogLevel = logLevel
	}
	level, err := cfg.Tuning.SlogLevel()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("pmbot starting",
		"version", version.Info(),
		"homeserver", cfg.HomeserverURL,
		"user_id", cfg.UserID,
	)

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.HomeserverURL,
		HTTPClient:    &http.Client{},
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	session, err := client.SessionFromToken(cfg.UserID, cfg.AccessToken)
	if err != nil {
		return err
	}

	engine, err := bot.NewEngine(bot.EngineConfig{
		Session:                session,
		SyncTimeout:            cfg.Tuning.SyncTimeout,
		BackoffFloor:           cfg.Tuning.BackoffFloor,
		BackoffCap:             cfg.Tuning.BackoffCap,
		MaxConsecutiveFailures: cfg.Tuning.MaxConsecutiveFailures,
		Logger:                 logger,
	})
	if err != nil {
		return err
	}
	engine.On(bot.KindMessage, bot.EchoHandler(bot.NewSender(session, logger)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		return err
	}
	logger.Info("pmbot stopped")
	return nil
}
