package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/userd-go/adapters/nats"
	"github.com/codewandler/userd-go/core/metrics"
	"github.com/codewandler/userd-go/core/user"
)

// userMetrics implements user.Metrics using Prometheus.
type userMetrics struct {
	commandDuration     *prometheus.HistogramVec
	commandsTotal       *prometheus.CounterVec
	lockConflictsTotal  prometheus.Counter
	retryExhaustedTotal prometheus.Counter
}

// NewUserMetrics creates a new Prometheus implementation of user.Metrics.
func NewUserMetrics(reg prometheus.Registerer) user.Metrics {
	m := &userMetrics{
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "userd_command_duration_seconds",
			Help:    "Command handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"command"}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userd_commands_total",
			Help: "Total number of commands processed",
		}, []string{"command", "success"}),

		lockConflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userd_optimistic_lock_conflicts_total",
			Help: "Total number of version conflicts on update",
		}),

		retryExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userd_update_retry_exhausted_total",
			Help: "Total number of updates that failed after all retry attempts",
		}),
	}

	reg.MustRegister(
		m.commandDuration,
		m.commandsTotal,
		m.lockConflictsTotal,
		m.retryExhaustedTotal,
	)

	return m
}

func (m *userMetrics) CommandDuration(command string) metrics.Timer {
	return newTimer(m.commandDuration.WithLabelValues(command))
}

func (m *userMetrics) CommandProcessed(command string, success bool) {
	m.commandsTotal.WithLabelValues(command, boolToStr(success)).Inc()
}

func (m *userMetrics) OptimisticLockConflict() {
	m.lockConflictsTotal.Inc()
}

func (m *userMetrics) UpdateRetryExhausted() {
	m.retryExhaustedTotal.Inc()
}

// consumerMetrics counts pubsub messages per subscription and outcome.
type consumerMetrics struct {
	messagesTotal *prometheus.CounterVec
}

// NewConsumerMetrics creates Prometheus metrics for the pubsub consumers.
func NewConsumerMetrics(reg prometheus.Registerer) nats.Metrics {
	m := &consumerMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userd_pubsub_messages_total",
			Help: "Total number of pubsub messages handled",
		}, []string{"subscription", "outcome"}),
	}
	reg.MustRegister(m.messagesTotal)
	return m
}

func (m *consumerMetrics) MessageHandled(subscription, outcome string) {
	m.messagesTotal.WithLabelValues(subscription, outcome).Inc()
}
