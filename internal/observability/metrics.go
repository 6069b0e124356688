package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pktwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pktwire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pktwire",
			Subsystem: "frame",
			Name:      "received_total",
			Help:      "Complete frames extracted from connection streams.",
		},
	)
	frameBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pktwire",
			Subsystem: "frame",
			Name:      "bytes_total",
			Help:      "Bytes read from or written to connection streams.",
		},
		[]string{"direction"},
	)
	packetsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pktwire",
			Subsystem: "packet",
			Name:      "dispatched_total",
			Help:      "Inbound envelopes by packet id and dispatch outcome.",
		},
		[]string{"packet", "outcome"},
	)
	packetsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pktwire",
			Subsystem: "packet",
			Name:      "dropped_total",
			Help:      "Inbound payloads dropped before dispatch.",
		},
		[]string{"reason"},
	)
	requestsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pktwire",
			Subsystem: "request",
			Name:      "pending",
			Help:      "Requests awaiting a correlated reply.",
		},
	)
	requestsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pktwire",
			Subsystem: "request",
			Name:      "settled_total",
			Help:      "Settled requests by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pktwire",
			Subsystem: "request",
			Name:      "duration_seconds",
			Help:      "Time from request registration to settlement.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	connectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pktwire",
			Subsystem: "conn",
			Name:      "open",
			Help:      "Open protocol connections.",
		},
	)
	connectionsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pktwire",
			Subsystem: "conn",
			Name:      "closed_total",
			Help:      "Connections torn down.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			framesReceived, frameBytes,
			packetsDispatched, packetsDropped,
			requestsPending, requestsSettled, requestDuration,
			connectionsOpen, connectionsClosed,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrame() {
	RegisterMetrics()
	framesReceived.Inc()
}

// RecordBytes counts stream traffic; direction is "in" or "out".
func RecordBytes(direction string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	frameBytes.WithLabelValues(direction).Add(float64(n))
}

func RecordDispatch(packetID, outcome string) {
	RegisterMetrics()
	packetsDispatched.WithLabelValues(packetID, outcome).Inc()
}

func RecordDrop(reason string) {
	RegisterMetrics()
	packetsDropped.WithLabelValues(reason).Inc()
}

func RequestStarted() {
	RegisterMetrics()
	requestsPending.Inc()
}

func RequestSettled(outcome string, duration time.Duration) {
	RegisterMetrics()
	requestsPending.Dec()
	requestsSettled.WithLabelValues(outcome).Inc()
	requestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func ConnectionOpened() {
	RegisterMetrics()
	connectionsOpen.Inc()
}

func ConnectionClosed() {
	RegisterMetrics()
	connectionsOpen.Dec()
	connectionsClosed.Inc()
}
