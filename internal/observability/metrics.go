package observability

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hostbridge/signon/internal/frame"
	"github.com/hostbridge/signon/internal/signon"
)

var (
	registerOnce sync.Once

	signonAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signon",
			Subsystem: "handshake",
			Name:      "attempts_total",
			Help:      "Total signon handshakes attempted.",
		},
		[]string{"host"},
	)
	signonFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signon",
			Subsystem: "handshake",
			Name:      "failures_total",
			Help:      "Failed signon handshakes by failure kind.",
		},
		[]string{"host", "reason"},
	)
	signonDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signon",
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Signon handshake duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"host", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(signonAttempts, signonFailures, signonDuration)
	})
}

// RecordSignon classifies one handshake outcome into the error kinds
// the protocol defines plus success.
func RecordSignon(host string, duration time.Duration, err error) {
	signonAttempts.WithLabelValues(host).Inc()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		signonFailures.WithLabelValues(host, FailureReason(err)).Inc()
	}
	signonDuration.WithLabelValues(host, outcome).Observe(duration.Seconds())
}

// FailureReason maps a handshake error to its kind: a host rejection,
// a framing violation, or a transport failure.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, signon.ErrExchangeRejected), errors.Is(err, signon.ErrSignonRejected):
		return "rejected"
	case errors.Is(err, signon.ErrShortReply),
		errors.Is(err, signon.ErrUnexpectedReply),
		errors.Is(err, signon.ErrCorrelationMismatch),
		errors.Is(err, signon.ErrMissingServerSeed),
		errors.Is(err, signon.ErrMissingUserID),
		errors.Is(err, frame.ErrShortHeader),
		errors.Is(err, frame.ErrLengthMismatch),
		errors.Is(err, frame.ErrFrameTooLarge):
		return "framing"
	default:
		return "transport"
	}
}
