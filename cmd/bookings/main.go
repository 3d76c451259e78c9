package main

import (
	"context"
	"os"

	"roombook/internal/bookings/handler"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/service"
	"roombook/internal/bookings/validator"
	"roombook/internal/notify"
	roomsrepo "roombook/internal/rooms/repository"
	"roombook/pkg/app"
	"roombook/pkg/clock"
	"roombook/pkg/config"
	"roombook/pkg/kafka"
	kafka_config "roombook/pkg/kafka/config"
	kafka_middleware "roombook/pkg/kafka/middleware"
	"roombook/pkg/model"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.RequireJWTSecret(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	bookingRepo, auditRepo, roomRepo, ping := initStorage(cfg)
	notifier := initNotifier(cfg, serverApp)

	bookingService := service.NewBookingService(
		bookingRepo,
		auditRepo,
		roomRepo,
		validator.NewBookingValidator(cfg.Log),
		notifier,
		clock.System{},
		cfg,
	)

	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log), ping)
	serverApp.Run()
}

func initStorage(cfg *config.Config) (repository.BookingRepository, repository.AuditRepository, roomsrepo.RoomRepository, handler.Pinger) {
	clk := clock.System{}

	if cfg.StorageBackend == config.StorageMemory {
		cfg.Log.Warn("Using in-memory storage, bookings are lost on restart")
		return repository.NewMemoryBookingRepository(clk, cfg.SlotLockWait),
			repository.NewMemoryAuditRepository(clk),
			roomsrepo.NewMemoryRoomRepository(loadRooms(cfg)...),
			nil
	}

	cfg.SetMongo()
	cfg.SetRedis()

	locker := repository.ChainLockers(
		repository.NewKeyedMutex(),
		repository.NewMongoSlotLocker(cfg, clk),
	)
	rooms := roomsrepo.NewCachedRoomRepository(
		roomsrepo.NewMongoRoomRepository(cfg),
		cfg.Client.Redis,
		cfg.RoomCacheTTL,
		cfg.Log,
	)
	ping := func(ctx context.Context) error {
		return cfg.Client.Mongo.Ping(ctx, nil)
	}

	cfg.Log.Info("Booking storage initialized", "database", cfg.MongoDatabaseName)
	return repository.NewMongoBookingRepository(cfg, locker, clk),
		repository.NewMongoAuditRepository(cfg, clk),
		rooms,
		ping
}

func loadRooms(cfg *config.Config) []*model.Room {
	if cfg.RoomsFile == "" {
		cfg.Log.Warn("ROOMS_FILE not set, in-memory room catalog is empty")
		return nil
	}

	f, err := os.Open(cfg.RoomsFile)
	if err != nil {
		cfg.Log.Fatal("Failed to open room catalog", "path", cfg.RoomsFile, "error", err)
	}
	defer f.Close()

	rooms, err := roomsrepo.LoadCatalog(f)
	if err != nil {
		cfg.Log.Fatal("Failed to load room catalog", "path", cfg.RoomsFile, "error", err)
	}
	cfg.Log.Info("Room catalog loaded", "path", cfg.RoomsFile, "rooms", len(rooms))
	return rooms
}

func initNotifier(cfg *config.Config, serverApp *app.Application) notify.Notifier {
	var dispatcher notify.Dispatcher

	switch cfg.NotifyTransport {
	case config.NotifyKafka:
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log)

		producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, kafkaCfg.ProducerDLQTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		metrics := &kafka_middleware.Metrics{}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(metrics))
		serverApp.OnShutdown("kafka-metrics", func(context.Context) error {
			cfg.Log.Info("Booking event producer metrics", metrics.Snapshot().LogArgs()...)
			return nil
		})

		dispatcher = notify.NewKafkaDispatcher(producer)
		cfg.Log.Info("Booking notifications published to Kafka", "topic", producer.Topic())

	case config.NotifyRabbitMQ:
		dispatcher = notify.NewRabbitMQDispatcher(cfg.RabbitMQURL, cfg.BookingEventsTopic)
		cfg.Log.Info("Booking notifications published to RabbitMQ", "queue", cfg.BookingEventsTopic)

	default:
		dispatcher = notify.NewNoopDispatcher()
		cfg.Log.Info("Booking notifications disabled")
	}

	async := notify.NewAsync(dispatcher, cfg.NotifyTimeout, cfg.Log)
	serverApp.OnShutdown("notifier", async.Close)
	return async
}
