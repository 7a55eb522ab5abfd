package cmd

import (
	"github.com/stretchr/testify/mock"

	"firestige.xyz/sniffer/internal/capture"
	"firestige.xyz/sniffer/internal/core"
)

// MockCapturer is a mock implementation of Capturer.
type MockCapturer struct {
	mock.Mock
}

func (m *MockCapturer) Start(sel capture.Selection) error {
	args := m.Called(sel)
	return args.Error(0)
}

func (m *MockCapturer) Stop() {
	m.Called()
}

func (m *MockCapturer) Records() <-chan core.PacketRecord {
	args := m.Called()
	return args.Get(0).(<-chan core.PacketRecord)
}

func (m *MockCapturer) Failures() <-chan capture.SessionFailure {
	args := m.Called()
	return args.Get(0).(<-chan capture.SessionFailure)
}

func (m *MockCapturer) Sessions() []capture.SessionInfo {
	args := m.Called()
	return args.Get(0).([]capture.SessionInfo)
}

func (m *MockCapturer) Dropped() uint64 {
	args := m.Called()
	return args.Get(0).(uint64)
}

// recordingConsumer keeps consumed records.
type recordingConsumer struct {
	records []core.PacketRecord
	err     error
}

func (r *recordingConsumer) Consume(rec core.PacketRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}
