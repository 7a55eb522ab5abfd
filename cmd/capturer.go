package cmd

import (
	"firestige.xyz/sniffer/internal/capture"
	"firestige.xyz/sniffer/internal/core"
)

// Capturer is the part of capture.Coordinator the capture command drives.
type Capturer interface {
	Start(sel capture.Selection) error
	Stop()
	Records() <-chan core.PacketRecord
	Failures() <-chan capture.SessionFailure
	Sessions() []capture.SessionInfo
	Dropped() uint64
}

// RecordConsumer prints records.
type RecordConsumer interface {
	Consume(rec core.PacketRecord) error
}

var _ Capturer = (*capture.Coordinator)(nil)
