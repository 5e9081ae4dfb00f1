package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emabot/internal/broker"
	"emabot/internal/config"
	"emabot/internal/notify"
	"emabot/internal/report"
	"emabot/internal/scheduler"
	"emabot/internal/state"
	"emabot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	runID := generateRunID()
	journal, err := report.NewJournal(cfg.JournalPath, runID, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.JournalPath).Msg("cannot open outcome journal")
	}
	defer func() {
		if err := journal.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close outcome journal")
		}
	}()

	var channels []notify.Notifier
	if cfg.EmailEnabled() {
		channels = append(channels, notify.NewEmail(notify.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			To:       cfg.EmailTo,
		}, cfg.Symbol, log))
	}
	if cfg.WebhookEnabled() {
		channels = append(channels, notify.NewWebhook(cfg.WebhookURL, cfg.Symbol, log))
	}
	var notifier notify.Notifier
	switch len(channels) {
	case 0:
		notifier = notify.NewNoop(log)
	case 1:
		notifier = channels[0]
	default:
		notifier = notify.NewMulti(channels...)
	}

	gateway := broker.NewAlpacaClient(broker.Config{
		APIKey:         cfg.APIKey,
		APISecret:      cfg.APISecret,
		BaseURL:        cfg.BaseURL,
		Feed:           cfg.Feed,
		RequestTimeout: cfg.ConnectTimeout,
	}, log)

	store := state.NewStore()
	sched := scheduler.New(cfg, gateway, notifier, store, journal, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	log.Info().Str("run_id", runID).Str("symbol", cfg.Symbol).Msg("starting bot")
	if err := sched.Run(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler stopped with error")
	}
	log.Info().Msg("bot shutdown complete")
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return timestamp
	}
	return timestamp + "-" + hex.EncodeToString(randomBytes)
}
