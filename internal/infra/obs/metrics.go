package obs

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "availsync"

// Metrics holds the prometheus collectors for transactions, the admission queue and HTTP traffic.
type Metrics struct {
	transactions    *prometheus.CounterVec
	txDuration      *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	published       *prometheus.CounterVec
	bookingEvents   *prometheus.CounterVec
}

// NewMetrics registers collectors on reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		transactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Availability transactions by outcome",
		}, []string{"outcome"}),
		txDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time from admission to settlement of an availability transaction",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Transactions admitted and not yet settled",
		}),
		requestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events handed to the broker",
		}, []string{"result"}),
		bookingEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_total",
			Help:      "Booking events consumed from the broker by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) TransactionSettled(outcome string, elapsed time.Duration) {
	m.transactions.WithLabelValues(outcome).Inc()
	m.txDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) QueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) OutboxPublished(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.published.WithLabelValues(result).Inc()
}

func (m *Metrics) BookingEvent(result string) {
	m.bookingEvents.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
