package monitoring

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Bookings by path (free, paid) and resulting status",
		},
		[]string{"path", "status"},
	)

	oversellRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_rejections_total",
			Help: "Booking attempts rejected for insufficient inventory",
		},
		[]string{"event_id"},
	)

	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Payment gateway calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Payment gateway call latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by event type and result",
		},
		[]string{"event_type", "result"},
	)

	reconciliations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliations_total",
			Help: "Payment reconciliations by source (verify, webhook) and outcome",
		},
		[]string{"source", "outcome"},
	)

	reservationsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_released_total",
			Help: "Reserved inventory returned to the pool, by reason",
		},
		[]string{"reason"},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_ins_total",
			Help: "Check-in attempts by result",
		},
		[]string{"result"},
	)
)

func TrackBooking(path, status string) {
	bookingsTotal.WithLabelValues(path, status).Inc()
}

func TrackOversellRejection(eventID string) {
	oversellRejections.WithLabelValues(eventID).Inc()
}

func TrackGatewayCall(operation string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	gatewayRequests.WithLabelValues(operation, outcome).Inc()
	gatewayDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func TrackWebhookEvent(eventType, result string) {
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

func TrackReconciliation(source, outcome string) {
	reconciliations.WithLabelValues(source, outcome).Inc()
}

func TrackReservationReleased(reason string) {
	reservationsReleased.WithLabelValues(reason).Inc()
}

func TrackCheckIn(result string) {
	checkIns.WithLabelValues(result).Inc()
}

// StartMetricsServer exposes /metrics on its own port so the scrape surface
// stays off the public API listener.
func StartMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%s", port)
		slog.Info("metrics server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
}
