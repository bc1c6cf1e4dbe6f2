package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lingocrowd/contribution_control/internal/cfg"
	"github.com/lingocrowd/contribution_control/internal/events"
	applogger "github.com/lingocrowd/contribution_control/internal/logger"
	"github.com/lingocrowd/contribution_control/internal/notification"
)

func main() {
	conf, err := cfg.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := applogger.New(conf.Env, conf.LogLevel, "contribution-notifier")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(conf, logger); err != nil {
		logger.Fatal().Err(err).Msg("notifier stopped")
	}
	logger.Info().Msg("notifier stopped")
}

func run(conf cfg.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brokers := conf.KafkaBrokers()
	if len(brokers) == 0 {
		return errors.New("KAFKA_BROKERS must be set")
	}
	if conf.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC must be set")
	}

	notifier := notification.NewLogNotifier(logger)
	if conf.Mongo.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(conf.Mongo.URI))
		cancel()
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("mongo disconnect")
			}
		}()
		inbox := client.Database(conf.Mongo.Database).Collection(conf.Mongo.NotificationCollection)
		notifier = notification.Multi(notifier, notification.NewInboxNotifier(inbox))
	}

	handler := notification.NewEventHandler(notifier, logger)
	consumer := events.NewKafkaConsumer(brokers, conf.Kafka.Topic, conf.Kafka.GroupID, handler, logger)
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer: %w", err)
	}
	return nil
}
