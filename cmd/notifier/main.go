package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"roombook/internal/notify"
	"roombook/pkg/config"
	"roombook/pkg/kafka"
	kafka_config "roombook/pkg/kafka/config"
	kafka_middleware "roombook/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := notify.NewLogSink(cfg.Log)

	var err error
	switch cfg.NotifyTransport {
	case config.NotifyKafka:
		err = runKafka(ctx, cfg, sink)
	case config.NotifyRabbitMQ:
		cfg.Log.Info("Consuming booking notifications from RabbitMQ", "queue", cfg.BookingEventsTopic)
		err = notify.NewRabbitMQConsumer(cfg.RabbitMQURL, cfg.BookingEventsTopic, sink, cfg.Log).Run(ctx)
	default:
		cfg.Log.Fatal("Notifier needs NOTIFY_TRANSPORT=kafka or rabbitmq", "notify_transport", cfg.NotifyTransport)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Fatal("Notifier stopped", "error", err)
	}
	cfg.Log.Info("Notifier stopped gracefully")
}

func runKafka(ctx context.Context, cfg *config.Config, sink notify.Sink) error {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return err
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingEventsTopic,
		kafkaCfg.ConsumerGroupID,
		kafkaCfg.ConsumerDLQTopic,
		notify.KafkaHandler(sink),
		cfg.Log,
	)
	if err != nil {
		return err
	}

	metrics := &kafka_middleware.Metrics{}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware(metrics))

	cfg.Log.Info("Consuming booking notifications from Kafka",
		"topic", cfg.BookingEventsTopic,
		"group_id", kafkaCfg.ConsumerGroupID,
	)
	err = consumer.Start(ctx)

	cfg.Log.Info("Booking notification consumer metrics",
		append(metrics.Snapshot().LogArgs(), "lag", consumer.Lag())...,
	)
	if closeErr := consumer.Close(); closeErr != nil {
		cfg.Log.Warn("Failed to close Kafka consumer", "error", closeErr)
	}
	return err
}
