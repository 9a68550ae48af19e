package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendRemote = "remote"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env          string
	HTTPAddr     string
	HotelID      string
	StoreBackend string
	SeedFile     string
	APITokens    []string
	MaxRoomTypes int

	ReadAPIURL        string
	WriteAPIURL       string
	WriteAPIAccessKey string
	RemoteTimeout     time.Duration
	RetryBackoff      []time.Duration

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	OTLPEndpoint string

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaBookingsTopic string
	KafkaGroupID       string
	OutboxPollInterval time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		HotelID:            os.Getenv("HOTEL_ID"),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		SeedFile:           os.Getenv("SEED_FILE"),
		ReadAPIURL:         strings.TrimRight(os.Getenv("READ_API_URL"), "/"),
		WriteAPIURL:        strings.TrimRight(os.Getenv("WRITE_API_URL"), "/"),
		WriteAPIAccessKey:  os.Getenv("WRITE_API_ACCESS_KEY"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "availsync"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisKey:           getEnv("REDIS_KEY", "availability"),
		S3Endpoint:         getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnv("S3_BUCKET", "availsync"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaBookingsTopic: getEnv("KAFKA_BOOKINGS_TOPIC", "booking.events.v1"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "availsync"),
	}
	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.APITokens = splitList(os.Getenv("API_TOKENS"))

	var err error
	if cfg.RemoteTimeout, err = parseDurationEnv("REMOTE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxRoomTypes, err = parseIntEnv("MAX_ROOM_TYPES", 100); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "200ms,1s,5s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRemote:
		if c.HotelID == "" {
			return fmt.Errorf("HOTEL_ID is required for the %s backend", c.StoreBackend)
		}
		if c.ReadAPIURL == "" || c.WriteAPIURL == "" {
			return fmt.Errorf("READ_API_URL and WRITE_API_URL are required for the %s backend", c.StoreBackend)
		}
		if c.WriteAPIAccessKey == "" {
			return fmt.Errorf("WRITE_API_ACCESS_KEY is required for the %s backend", c.StoreBackend)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the %s backend", c.StoreBackend)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the %s backend", c.StoreBackend)
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the %s backend", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.HotelID == "" && c.StoreBackend != BackendMemory {
		return fmt.Errorf("HOTEL_ID is required for the %s backend", c.StoreBackend)
	}
	return nil
}

// DocumentID names the availability document in backends keyed by hotel.
func (c Config) DocumentID() string {
	if c.HotelID == "" {
		return "default"
	}
	return c.HotelID
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
