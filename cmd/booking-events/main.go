package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"jobfair/internal/bookings/events"
	"jobfair/internal/bookings/repository"
	"jobfair/pkg/config"
	"jobfair/pkg/kafka"
	kafka_config "jobfair/pkg/kafka/config"
	kafka_middleware "jobfair/pkg/kafka/middleware"
)

const ServiceName = "booking-events"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	handler := events.NewAuditHandler(repository.NewBookingEventRepository(cfg), cfg.Log)
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		cfg.BookingEventsGroup,
		cfg.BookingEventsDLQ,
		handler,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting booking events consumer",
		"topic", cfg.BookingEventsTopic,
		"group", cfg.BookingEventsGroup,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Booking events consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close kafka consumer", "error", err)
	}
	cfg.Log.Info("Booking events consumer stopped")
}
