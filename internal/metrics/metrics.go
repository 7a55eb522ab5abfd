// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapturePacketsTotal counts datagrams read from capture sockets
	CapturePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniffer_capture_packets_total",
			Help: "Total number of datagrams read from capture sockets",
		},
		[]string{"interface", "address"},
	)

	// RecordsEmittedTotal counts records handed to the consumer queue
	RecordsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniffer_records_emitted_total",
			Help: "Total number of decoded records emitted by capture sessions",
		},
		[]string{"interface", "address"},
	)

	// DecodeErrorsTotal counts datagrams dropped by the decoder
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniffer_decode_errors_total",
			Help: "Total number of datagrams that failed header decoding",
		},
		[]string{"interface", "reason"},
	)

	// CaptureDropsTotal counts records dropped after decoding
	CaptureDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniffer_capture_drops_total",
			Help: "Total number of records dropped during capture",
		},
		[]string{"stage"},
	)

	// SessionFailuresTotal counts sessions that stopped on a socket error
	SessionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniffer_session_failures_total",
			Help: "Total number of capture sessions that failed",
		},
		[]string{"interface"},
	)

	// ActiveSessions tracks running capture sessions
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sniffer_active_sessions",
			Help: "Number of capture sessions currently running",
		},
	)

	// RecordsQueueLength tracks records waiting for the consumer
	RecordsQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sniffer_records_queue_length",
			Help: "Number of records waiting in the consumer queue",
		},
	)
)

// Drop stages
const (
	StageQueue = "queue"
)
