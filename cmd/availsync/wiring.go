package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"availsync/internal/app/commands"
	availabilityapp "availsync/internal/app/handlers/availability"
	"availsync/internal/app/middleware"
	appoutbox "availsync/internal/app/outbox"
	"availsync/internal/app/queries"
	appservice "availsync/internal/app/services/availability"
	domainavailability "availsync/internal/domain/availability"
	"availsync/internal/infra/broker/kafka"
	"availsync/internal/infra/config"
	mongodb "availsync/internal/infra/db/mongo"
	ginserver "availsync/internal/infra/http/gin"
	"availsync/internal/infra/inbox"
	"availsync/internal/infra/obs"
	infraoutbox "availsync/internal/infra/outbox"
	"availsync/internal/infra/remote"
	"availsync/internal/infra/storage/memory"
	redisstore "availsync/internal/infra/storage/redis"
	s3store "availsync/internal/infra/storage/s3"
)

// outboxStore is both ends of the outbox: the updater appends, the relay claims.
type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Source
}

type infrastructure struct {
	store       domainavailability.Store
	idempotency middleware.IdempotencyStore
	outbox      outboxStore
	inbox       kafka.Inbox
	pingers     []func(context.Context) error
	closers     []func(context.Context) error
}

func (i *infrastructure) ready(ctx context.Context) error {
	for _, ping := range i.pingers {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (i *infrastructure) close(logger *slog.Logger) {
	ctx := context.Background()
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func buildInfrastructure(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{}

	// Idempotency, outbox and inbox live in mongo whenever it is configured.
	var mongoClient *mongodb.Client
	if cfg.MongoURI != "" {
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		mongoClient = client
		infra.closers = append(infra.closers, client.Close)
		infra.pingers = append(infra.pingers, client.Ping)

		if infra.idempotency, err = mongodb.NewIdempotencyStore(ctx, client.DB, 0); err != nil {
			return nil, fmt.Errorf("mongo idempotency store: %w", err)
		}
		if infra.outbox, err = infraoutbox.NewMongoStore(ctx, client.DB); err != nil {
			return nil, fmt.Errorf("mongo outbox store: %w", err)
		}
		if infra.inbox, err = inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID); err != nil {
			return nil, fmt.Errorf("mongo inbox store: %w", err)
		}
	} else {
		infra.idempotency = memory.NewIdempotencyStore()
		infra.outbox = memory.NewOutbox()
		infra.inbox = memory.NewInboxStore()
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		var seed domainavailability.Snapshot
		if cfg.SeedFile != "" {
			loaded, err := memory.LoadSnapshotFile(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			seed = loaded
			logger.Info("availability seeded", "path", cfg.SeedFile, "room_types", len(seed))
		}
		infra.store = memory.NewAvailabilityStore(seed)
	case config.BackendRemote:
		client := &remote.Client{
			HTTP:        &http.Client{Timeout: cfg.RemoteTimeout},
			ReadAPIURL:  cfg.ReadAPIURL,
			WriteAPIURL: cfg.WriteAPIURL,
			AccessKey:   cfg.WriteAPIAccessKey,
			HotelID:     cfg.HotelID,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger,
		}
		infra.store = client
		infra.pingers = append(infra.pingers, client.Ping)
	case config.BackendMongo:
		if mongoClient == nil {
			return nil, errors.New("mongo backend selected without MONGO_URI")
		}
		infra.store = mongodb.NewAvailabilityStore(mongoClient.DB, cfg.HotelID)
	case config.BackendRedis:
		client := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store := redisstore.NewAvailabilityStore(client, cfg.RedisKey, cfg.HotelID)
		infra.store = store
		infra.pingers = append(infra.pingers, store.Ping)
		infra.closers = append(infra.closers, func(context.Context) error { return client.Close() })
	case config.BackendS3:
		store, err := s3store.NewAvailabilityStore(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.HotelID, logger)
		if err != nil {
			return nil, err
		}
		infra.store = store
		infra.pingers = append(infra.pingers, store.Ping)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return infra, nil
}

type application struct {
	updater  *appservice.Updater
	commands commands.Bus
	queries  queries.Bus
	http     ginserver.AvailabilityHandler
}

func buildApplication(cfg config.Config, infra *infrastructure, logger *slog.Logger, metrics *obs.Metrics) application {
	updater := &appservice.Updater{
		HotelID: cfg.HotelID,
		Store:   infra.store,
		Encoder: appoutbox.JSONEventEncoder{},
		Logger:  logger,
		Metrics: metrics,
	}
	// Events are recorded only when a relay will drain the outbox.
	if messagingEnabled(cfg) {
		updater.Outbox = infra.outbox
	}

	commandBus := commands.NewInMemoryBus()
	commands.Register(commandBus, &availabilityapp.UpdateAvailabilityHandler{Updater: updater})
	queryBus := queries.NewInMemoryBus()
	queries.Register(queryBus, &availabilityapp.GetSnapshotHandler{HotelID: cfg.HotelID, Updater: updater})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Authorization(middleware.RequirePrincipal{}),
		middleware.Validation(availabilityapp.RequestValidator{MaxRoomTypes: cfg.MaxRoomTypes}),
		middleware.Idempotency(infra.idempotency, middleware.JSONResultCodec{}, availabilityapp.ErrorCodec{}, logger),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryAuthorization(middleware.RequirePrincipal{}),
	)

	return application{
		updater:  updater,
		commands: commandBusWithMiddleware,
		queries:  queryBusWithMiddleware,
		http: ginserver.AvailabilityHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
		},
	}
}

// startMessaging runs the outbox relay and the booking-event consumer when brokers are configured.
func startMessaging(ctx context.Context, group *errgroup.Group, cfg config.Config, infra *infrastructure, app application, logger *slog.Logger, metrics *obs.Metrics) error {
	if !messagingEnabled(cfg) {
		logger.Info("KAFKA_BROKERS not set, messaging disabled")
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	infra.closers = append(infra.closers, func(context.Context) error { return producer.Close() })
	worker := &infraoutbox.Worker{
		Store:       infra.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Source:      "app://availsync/" + cfg.DocumentID(),
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
		Metrics:     metrics,
	}
	group.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	handler := &kafka.BookingEventHandler{
		Bus:     app.commands,
		Inbox:   infra.inbox,
		Logger:  logger,
		Metrics: metrics,
	}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, handler, retryDelay(cfg), logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	infra.closers = append(infra.closers, func(context.Context) error { return consumer.Close() })
	topic := cfg.KafkaTopicPrefix + cfg.KafkaBookingsTopic
	group.Go(func() error {
		logger.Info("booking consumer starting", "topic", topic, "group", cfg.KafkaGroupID)
		if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return nil
}

func messagingEnabled(cfg config.Config) bool {
	return len(cfg.KafkaBrokers) > 0
}

// retryDelay paces redelivery of a booking event whose update failed on the store.
func retryDelay(cfg config.Config) time.Duration {
	if n := len(cfg.RetryBackoff); n > 0 {
		return cfg.RetryBackoff[n-1]
	}
	return time.Second
}
