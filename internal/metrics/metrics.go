package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels chat requests answered with a generated response.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels chat requests rejected before any work.
	OutcomeInvalid = "invalid"
	// OutcomeError labels chat requests that failed at generation.
	OutcomeError = "error"

	SectionIssues  = "issues"
	SectionHistory = "history"
)

var (
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civixity",
			Name:      "chat_requests_total",
			Help:      "Chat requests handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	chatDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "civixity",
			Name:      "chat_seconds",
			Help:      "End-to-end chat pipeline latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	generationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "civixity",
			Name:      "generation_seconds",
			Help:      "Generative provider call latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	contextDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civixity",
			Name:      "context_degraded_total",
			Help:      "Context sections replaced with empty text because the store failed.",
		},
		[]string{"section"},
	)

	turnPersistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "civixity",
			Name:      "turn_persist_failures_total",
			Help:      "Conversation turns that could not be written.",
		},
	)

	imageDetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "civixity",
			Name:      "image_detections_total",
			Help:      "Image authenticity checks, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches civixity collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		chatRequestsTotal,
		chatDurationSeconds,
		generationDurationSeconds,
		contextDegradedTotal,
		turnPersistFailuresTotal,
		imageDetectionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveChat records a chat request duration and outcome label.
func ObserveChat(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeInvalid, OutcomeError:
	default:
		outcome = OutcomeSuccess
	}
	chatRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeInvalid {
		return
	}
	chatDurationSeconds.Observe(clamp(duration).Seconds())
}

// ObserveGeneration records how long the provider took, successful or not.
func ObserveGeneration(duration time.Duration) {
	generationDurationSeconds.Observe(clamp(duration).Seconds())
}

// ContextDegraded counts a context section lost to a store failure.
func ContextDegraded(section string) {
	contextDegradedTotal.WithLabelValues(section).Inc()
}

// TurnPersistFailed counts a swallowed conversation write failure.
func TurnPersistFailed() {
	turnPersistFailuresTotal.Inc()
}

// ImageDetected counts a classifier outcome ("AI", "Natural" or "error").
func ImageDetected(result string) {
	imageDetectionsTotal.WithLabelValues(result).Inc()
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
