package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	threadReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refersync_thread_reads_total",
		Help: "Thread reads from the conversation store.",
	})
	threadReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refersync_thread_read_failures_total",
		Help: "Thread reads that failed at the storage layer.",
	})
	threadParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refersync_thread_parse_failures_total",
		Help: "Corrupt thread values degraded to an empty sequence.",
	})
	threadWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refersync_thread_writes_total",
		Help: "Whole-thread writes persisted to the conversation store.",
	})
	threadWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refersync_thread_write_failures_total",
		Help: "Thread writes that failed before or during persistence.",
	})
	referralWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refersync_referral_writes_total",
		Help: "Referral record writes.",
	})
)
