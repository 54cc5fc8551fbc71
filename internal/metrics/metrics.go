package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_messages_sent_total",
			Help: "Total messages pushed to the queue",
		})

	MessagesSendFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_messages_send_failed_total",
			Help: "Total messages the queue refused to accept",
		})

	MessagesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_messages_received_total",
			Help: "Total messages received from the queue",
		})

	MessagesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_messages_deleted_total",
			Help: "Total messages deleted from the queue",
		})

	MessagesDeleteFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_messages_delete_failed_total",
			Help: "Total delete entries reported as failed and left to reappear",
		})

	EmptyPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_empty_polls_total",
			Help: "Total polls that returned no messages",
		})

	TicksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_reader_ticks_skipped_total",
			Help: "Total timer ticks dropped because a cycle was still executing",
		})

	CyclesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqs_relay_reader_cycles_failed_total",
			Help: "Total reader cycles that ended with an error",
		})

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqs_relay_reader_cycle_seconds",
			Help:    "Histogram of poll/delete cycle duration",
			Buckets: prometheus.DefBuckets,
		})
)

func Setup() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(MessagesSendFailed)
	prometheus.MustRegister(MessagesReceived)
	prometheus.MustRegister(MessagesDeleted)
	prometheus.MustRegister(MessagesDeleteFailed)
	prometheus.MustRegister(EmptyPolls)
	prometheus.MustRegister(TicksSkipped)
	prometheus.MustRegister(CyclesFailed)
	prometheus.MustRegister(CycleDuration)
}
