package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvStorageBackend    = "STORAGE_BACKEND"
	EnvRoomsFile         = "ROOMS_FILE"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvTimeZone     = "TIME_ZONE"
	EnvSlotLockTTL  = "SLOT_LOCK_TTL"
	EnvSlotLockWait = "SLOT_LOCK_WAIT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
	EnvRoomCacheTTL  = "ROOM_CACHE_TTL"

	EnvNotifyTransport    = "NOTIFY_TRANSPORT"
	EnvBookingEventsTopic = "BOOKING_EVENTS_TOPIC"
	EnvRabbitMQURL        = "RABBITMQ_URL"
	EnvNotifyTimeout      = "NOTIFY_TIMEOUT"
)
