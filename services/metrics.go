package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chapter_store_retries_total",
		Help: "Store operations retried after a transient failure.",
	}, []string{"op"})

	liveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chapter_live_subscriptions",
		Help: "Open live snapshot streams.",
	}, []string{"kind"})

	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chapter_messages_sent_total",
		Help: "Messages appended to mentorship threads.",
	})

	countersRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chapter_thread_counters_repaired_total",
		Help: "Threads whose reply counters were corrected by reconciliation.",
	})
)
