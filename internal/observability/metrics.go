package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec

	chatConnectionsActive  prometheus.Gauge
	chatMessagesTotal      *prometheus.CounterVec
	sseClientsActive       prometheus.Gauge
	notificationsPublished *prometheus.CounterVec
	uploadRequestsTotal    *prometheus.CounterVec
	uploadLatencySeconds   prometheus.Histogram
	paymentIntentsTotal    *prometheus.CounterVec
	pushMessagesTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		chatConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Number of open chat websocket connections.",
		})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages accepted, labelled by delivery origin.",
		}, []string{"origin"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_sse_clients_active",
			Help: "Number of subscribers attached to the notification stream.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total notifications published, labelled by type.",
		}, []string{"type"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Total image upload attempts, labelled by outcome.",
		}, []string{"outcome"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency distribution for image uploads.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		paymentIntentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Total Stripe payment intents created, labelled by outcome.",
		}, []string{"outcome"})

		pushMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "push_messages_total",
			Help: "Total FCM push sends, labelled by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			adminRequestsTotal, adminLatencySeconds, adminErrorsTotal,
			chatConnectionsActive, chatMessagesTotal,
			sseClientsActive, notificationsPublished,
			uploadRequestsTotal, uploadLatencySeconds,
			paymentIntentsTotal, pushMessagesTotal,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// ChatConnections exposes the gauge for active websocket connections.
func ChatConnections() prometheus.Gauge {
	RegisterMetrics()
	return chatConnectionsActive
}

// ChatMessages exposes the counter for accepted chat messages.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// SSEClients exposes the gauge for attached notification subscribers.
func SSEClients() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// NotificationsPublished exposes the counter for published notifications.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// UploadRequests exposes the counter for upload attempts.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadLatency exposes the histogram for upload durations.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// PaymentIntents exposes the counter for Stripe intent creation.
func PaymentIntents() *prometheus.CounterVec {
	RegisterMetrics()
	return paymentIntentsTotal
}

// PushMessages exposes the counter for FCM push sends.
func PushMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return pushMessagesTotal
}
