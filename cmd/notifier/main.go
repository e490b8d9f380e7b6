// Command notifier consumes reservation events from RabbitMQ and renders guest
// notifications for them.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"hotelsuite/internal/logger"
	"hotelsuite/internal/messaging"
	"hotelsuite/pkg/config"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if !cfg.RabbitMQ.Enabled() {
		logger.Fatal("RABBITMQ_URL is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &messaging.Consumer{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
		Queue:    cfg.RabbitMQ.Queue,
		Handle:   messaging.LogNotifier,
	}
	logger.Get().Info("notifier started", "exchange", c.Exchange, "queue", c.Queue)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("notifier stopped", "error", err)
	}
	logger.Get().Info("notifier stopped")
}
