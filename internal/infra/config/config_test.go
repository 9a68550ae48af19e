package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, time.Second, 5 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, "default", cfg.DocumentID())
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadRemoteBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "remote")
	t.Setenv("HOTEL_ID", "hotel-1")
	t.Setenv("READ_API_URL", "http://read.example/")
	t.Setenv("WRITE_API_URL", "http://write.example")
	t.Setenv("WRITE_API_ACCESS_KEY", "secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("API_TOKENS", "a,,b")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://read.example", cfg.ReadAPIURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"a", "b"}, cfg.APITokens)
	assert.Equal(t, "hotel-1", cfg.DocumentID())
}

func TestLoadRejectsIncompleteBackends(t *testing.T) {
	t.Setenv("STORE_BACKEND", "remote")
	t.Setenv("HOTEL_ID", "hotel-1")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err = Load()
	assert.ErrorContains(t, err, "MONGO_URI")

	t.Setenv("STORE_BACKEND", "tape")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown STORE_BACKEND")
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("RETRY_BACKOFF", "1s,soon")
	_, err := Load()
	assert.ErrorContains(t, err, "RETRY_BACKOFF")

	t.Setenv("RETRY_BACKOFF", "")
	t.Setenv("S3_USE_SSL", "maybe")
	_, err = Load()
	assert.ErrorContains(t, err, "S3_USE_SSL")

	t.Setenv("S3_USE_SSL", "")
	t.Setenv("REDIS_DB", "one")
	_, err = Load()
	assert.ErrorContains(t, err, "REDIS_DB")
}
