/* Copyright (c) 2025 Apollos Project
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ApollosProject/bug-board/internal/adapters/github"
	"github.com/ApollosProject/bug-board/internal/adapters/linear"
	"github.com/ApollosProject/bug-board/internal/adapters/openai"
	"github.com/ApollosProject/bug-board/internal/adapters/slack"
	"github.com/ApollosProject/bug-board/internal/config"
	httpx "github.com/ApollosProject/bug-board/internal/http"
	"github.com/ApollosProject/bug-board/internal/jobs"
	"github.com/ApollosProject/bug-board/internal/logger"
	"github.com/ApollosProject/bug-board/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	// Adapters
	tracker := linear.NewClient(cfg, log)
	codeHost := github.NewClient(cfg, log)
	llm := openai.NewClient(cfg, log)
	notifier := slack.NewClient(cfg.SlackWebhookURL, cfg.HTTPTimeout, log)
	var manager services.Notifier = notifier
	if cfg.ManagerSlackWebhookURL != "" {
		manager = slack.NewClient(cfg.ManagerSlackWebhookURL, cfg.HTTPTimeout, log)
	}

	// Service
	svc := services.New(cfg, log, tracker, codeHost, notifier, manager, llm)

	// Cron
	cr, err := jobs.NewCron(cfg, log, svc)
	if err != nil {
		log.Error().Err(err).Msg("cron setup failed")
		os.Exit(1)
	}
	cr.Start()
	defer cr.Stop()

	// HTTP server (Gin)
	router := httpx.NewRouter(cfg, log, svc)
	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil { log.Error().Err(err).Msg("http server error") }
	}

	time.Sleep(500 * time.Millisecond)
}
