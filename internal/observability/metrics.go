package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lupi_http_requests_total",
			Help: "Total number of HTTP requests processed by the messaging service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lupi_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lupi_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lupi_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	feedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lupi_feed_events_total",
			Help: "Total number of change-feed events published.",
		},
		[]string{"collection", "kind"},
	)
	feedDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lupi_feed_dropped_total",
			Help: "Change-feed events dropped because a subscriber buffer was full.",
		},
		[]string{"collection"},
	)
	unreadRecountsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lupi_unread_recounts_total",
			Help: "Total number of full unread recounts.",
		},
	)
	billingWebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lupi_billing_webhooks_total",
			Help: "Total number of billing webhook deliveries by outcome.",
		},
		[]string{"result"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lupi_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		feedEventsTotal,
		feedDroppedTotal,
		unreadRecountsTotal,
		billingWebhooksTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncFeedEvent(collection, kind string) {
	feedEventsTotal.WithLabelValues(collection, kind).Inc()
}

func IncFeedDropped(collection string) {
	feedDroppedTotal.WithLabelValues(collection).Inc()
}

func IncUnreadRecount() {
	unreadRecountsTotal.Inc()
}

func IncBillingWebhook(result string) {
	billingWebhooksTotal.WithLabelValues(result).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
