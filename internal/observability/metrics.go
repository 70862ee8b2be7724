package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionRead  = "read"
	DirectionWrite = "write"
)

var (
	registerOnce sync.Once

	streamObjects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rawlog",
			Subsystem: "stream",
			Name:      "objects_total",
			Help:      "Objects moved through envelope streams.",
		},
		[]string{"direction", "type"},
	)
	streamBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rawlog",
			Subsystem: "stream",
			Name:      "bytes_total",
			Help:      "Envelope bytes moved through streams.",
		},
		[]string{"direction"},
	)
	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rawlog",
			Subsystem: "stream",
			Name:      "errors_total",
			Help:      "Stream read failures by kind.",
		},
		[]string{"kind"},
	)
	recorderSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rawlog",
			Subsystem: "recorder",
			Name:      "sessions_total",
			Help:      "Recorder sessions by outcome.",
		},
		[]string{"outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rawlog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rawlog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(streamObjects, streamBytes, streamErrors, recorderSessions, httpRequests, httpDuration)
	})
}

func RecordObject(direction, typeName string, size int) {
	RegisterMetrics()
	if typeName == "" {
		typeName = "null"
	}
	streamObjects.WithLabelValues(direction, typeName).Inc()
	streamBytes.WithLabelValues(direction).Add(float64(size))
}

func RecordStreamError(err error) {
	RegisterMetrics()
	streamErrors.WithLabelValues(ErrorKind(err)).Inc()
}

func RecordSession(outcome string) {
	RegisterMetrics()
	recorderSessions.WithLabelValues(outcome).Inc()
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

// ErrorKind maps a stream error to a bounded metric label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, protocol.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, protocol.ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, protocol.ErrPayloadLength):
		return "payload_length"
	case errors.Is(err, protocol.ErrTruncated):
		return "truncated"
	case errors.Is(err, protocol.ErrPayloadTooLarge),
		errors.Is(err, protocol.ErrTypeNameTooLong),
		errors.Is(err, protocol.ErrSequenceTooLong):
		return "limit"
	case errors.Is(err, protocol.ErrIO):
		return "io"
	default:
		return "decode"
	}
}

// StreamObserver feeds stream activity into the metrics above.
type StreamObserver struct{}

var _ protocol.Observer = StreamObserver{}

func (StreamObserver) ObjectWritten(typeName string, _ uint8, size int) {
	RecordObject(DirectionWrite, typeName, size)
}

func (StreamObserver) ObjectRead(typeName string, _ uint8, size int) {
	RecordObject(DirectionRead, typeName, size)
}

func (StreamObserver) ReadFailed(err error) {
	RecordStreamError(err)
}
