package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diogopython/Nuvemhost/internal/config"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/notify"
	"github.com/diogopython/Nuvemhost/internal/queue"
)

var workerCMD = &cobra.Command{
	Use:   "worker",
	Short: "consume registration events and send welcome mail",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return runWorker()
	},
}

func init() {
	rootCMD.AddCommand(workerCMD)
}

func runWorker() error {
	cfg := config.Load()
	log, closeLog, err := logging.New(cfg.Debug, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = closeLog() }()

	if cfg.RabbitURL == "" {
		return errors.New("RABBITMQ_URL is not set")
	}
	if !cfg.Mail.Enabled() {
		return errors.New("SMTP_SERVER is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "worker started", "queue", queue.UserRegisteredQueue)
	err = queue.StartWelcomeConsumer(ctx, cfg.RabbitURL, notify.NewSMTPMailer(cfg.Mail), log.With("component", "worker"))
	if errors.Is(err, context.Canceled) {
		log.Info(context.Background(), "worker stopped")
		return nil
	}
	return err
}
