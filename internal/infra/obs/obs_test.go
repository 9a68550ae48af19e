package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewLoggerJSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod").Info("hello", "hotel_id", "h1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "h1", line["hotel_id"])
}

func TestLoggerAddsRequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithRequestID(context.Background(), "req-9")
	newLogger(&buf, "prod").With("component", "test").InfoContext(ctx, "committed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-9", line["request_id"])
	assert.Equal(t, "test", line["component"])
}

func TestRequestIDPropagates(t *testing.T) {
	r := gin.New()
	r.Use(Middleware{}.RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, rec.Header().Get(HeaderRequestID), seen)
}

func TestReadyz(t *testing.T) {
	r := gin.New()
	failing := true
	h := HealthHandlers{Ready: func(context.Context) error {
		if failing {
			return errors.New("store down")
		}
		return nil
	}}
	r.GET("/readyz", h.Readyz)
	r.GET("/livez", h.Livez)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "store down")

	failing = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRecordTransactionsAndRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TransactionSettled("committed", 10*time.Millisecond)
	m.TransactionSettled("committed", 20*time.Millisecond)
	m.TransactionSettled("rejected", time.Millisecond)
	m.QueueDepth(3)
	m.OutboxPublished(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactions.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("rejected")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.published.WithLabelValues("error")))

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/v1/availability", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues(http.MethodGet, "/api/v1/availability", "200")))
}

func TestOTLPHostPort(t *testing.T) {
	assert.Equal(t, "tempo:4318", otlpHostPort("http://tempo:4318"))
	assert.Equal(t, "tempo:4318", otlpHostPort("https://tempo"))
	assert.Equal(t, "collector:4318", otlpHostPort("collector:4318"))
}

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "availsync", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
