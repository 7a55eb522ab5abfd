package capture

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/sniffer/internal/core"
	"firestige.xyz/sniffer/internal/core/decoder"
	"firestige.xyz/sniffer/internal/core/format"
	"firestige.xyz/sniffer/internal/log"
	"firestige.xyz/sniffer/internal/metrics"
)

// SessionState represents the state of a session in its lifecycle.
type SessionState string

const (
	// StateIdle indicates the session is created but not started.
	StateIdle SessionState = "idle"
	// StateRunning indicates the receive loop is running.
	StateRunning SessionState = "running"
	// StateStopped indicates the session was stopped.
	StateStopped SessionState = "stopped"
	// StateFailed indicates the receive loop exited on a socket error other
	// than the socket being closed.
	StateFailed SessionState = "failed"
)

// Sink receives the output of a session. Emit is called from the session's
// receive goroutine and must not block.
type Sink interface {
	Emit(rec core.PacketRecord)
	Fail(f SessionFailure)
}

// SessionFailure reports a session whose receive loop stopped on an error.
type SessionFailure struct {
	Addr      netip.Addr
	Interface string
	Err       error
}

func (f SessionFailure) Error() string {
	return fmt.Sprintf("capture on %s (%s) failed: %v", f.Addr, f.Interface, f.Err)
}

func (f SessionFailure) Unwrap() error {
	return f.Err
}

// SessionStats is a snapshot of session counters.
type SessionStats struct {
	Received  uint64
	Emitted   uint64
	TooShort  uint64
	Malformed uint64
}

// Session captures the traffic of one local address. Sessions are single-use.
type Session struct {
	addr    netip.Addr
	iface   Interface
	opts    SocketOptions
	open    Opener
	decoder decoder.Decoder
	sink    Sink
	logger  log.Logger

	mu    sync.Mutex
	state SessionState
	sock  Socket
	done  chan struct{}

	stopping atomic.Bool

	received  atomic.Uint64
	emitted   atomic.Uint64
	tooShort  atomic.Uint64
	malformed atomic.Uint64
}

// NewSession creates an idle session for addr on iface.
func NewSession(iface Interface, addr netip.Addr, opts SocketOptions, open Opener, sink Sink) *Session {
	if opts.SnapLen <= 0 {
		opts.SnapLen = DefaultSnapLen
	}
	return &Session{
		addr:    addr,
		iface:   iface,
		opts:    opts,
		open:    open,
		decoder: decoder.Standard,
		sink:    sink,
		state:   StateIdle,
		logger: log.GetLogger().WithFields(map[string]interface{}{
			"iface": iface.Name,
			"addr":  addr.String(),
		}),
	}
}

// Addr returns the captured address.
func (s *Session) Addr() netip.Addr { return s.addr }

// Interface returns the interface the session is bound to.
func (s *Session) Interface() Interface { return s.iface }

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		Received:  s.received.Load(),
		Emitted:   s.emitted.Load(),
		TooShort:  s.tooShort.Load(),
		Malformed: s.malformed.Load(),
	}
}

// setState must be called with mu held.
func (s *Session) setState(state SessionState) {
	s.state = state
	s.logger.WithField("state", state).Debug("session state changed")
}

// Start opens the socket and starts the receive loop.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return core.ErrSessionNotIdle
	}

	sock, err := s.open(s.iface, s.addr, s.opts)
	if err != nil {
		s.setState(StateFailed)
		return err
	}

	s.sock = sock
	s.done = make(chan struct{})
	s.setState(StateRunning)
	metrics.ActiveSessions.Inc()

	go s.receiveLoop(sock, s.done)
	return nil
}

// Stop closes the socket and waits for the receive loop to exit. It is
// idempotent and safe on a session that failed.
func (s *Session) Stop() {
	s.mu.Lock()
	switch s.state {
	case StateStopped:
		s.mu.Unlock()
		return
	case StateIdle:
		s.setState(StateStopped)
		s.mu.Unlock()
		return
	}
	s.stopping.Store(true)
	sock, done := s.sock, s.done
	s.mu.Unlock()

	if sock != nil {
		// A failed loop already closed it.
		_ = sock.Close()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	if s.state == StateRunning {
		metrics.ActiveSessions.Dec()
	}
	s.setState(StateStopped)
	s.mu.Unlock()
}

func (s *Session) receiveLoop(sock Socket, done chan struct{}) {
	defer close(done)

	buf := make([]byte, s.opts.SnapLen)
	for {
		n, ci, err := sock.ReadPacketData(buf)
		if err != nil {
			if s.stopping.Load() {
				return
			}
			if isClosed(err) {
				s.closed()
				return
			}
			s.fail(sock, err)
			return
		}
		s.handle(buf[:n], ci)
	}
}

func (s *Session) handle(data []byte, ci gopacket.CaptureInfo) {
	s.received.Add(1)
	metrics.CapturePacketsTotal.WithLabelValues(s.iface.Name, s.addr.String()).Inc()

	// buf is reused by the next read
	raw := make([]byte, len(data))
	copy(raw, data)

	rec, err := s.decoder.Decode(raw)
	if err != nil {
		s.countDecodeError(err)
		return
	}

	rec.HexText, rec.PayloadText = format.Encode(raw, rec.Payload())
	rec.Timestamp = ci.Timestamp
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Capture = s.addr
	rec.Interface = s.iface.Name

	s.sink.Emit(rec)
	s.emitted.Add(1)
	metrics.RecordsEmittedTotal.WithLabelValues(s.iface.Name, s.addr.String()).Inc()
}

func (s *Session) countDecodeError(err error) {
	reason := "malformed"
	if errors.Is(err, core.ErrTooShort) {
		reason = "too_short"
		s.tooShort.Add(1)
	} else {
		s.malformed.Add(1)
	}
	metrics.DecodeErrorsTotal.WithLabelValues(s.iface.Name, reason).Inc()
	if s.logger.IsTraceEnabled() {
		s.logger.WithError(err).Trace("datagram dropped")
	}
}

// closed handles a socket closed outside Stop. The loop ends without a
// failure report.
func (s *Session) closed() {
	s.mu.Lock()
	if s.state == StateRunning {
		metrics.ActiveSessions.Dec()
	}
	s.setState(StateStopped)
	s.mu.Unlock()

	s.logger.Info("capture socket closed")
}

func (s *Session) fail(sock Socket, err error) {
	_ = sock.Close()

	s.mu.Lock()
	if s.state == StateRunning {
		metrics.ActiveSessions.Dec()
	}
	s.setState(StateFailed)
	s.mu.Unlock()

	metrics.SessionFailuresTotal.WithLabelValues(s.iface.Name).Inc()
	s.logger.WithError(err).Error("capture session failed")

	s.sink.Fail(SessionFailure{
		Addr:      s.addr,
		Interface: s.iface.Name,
		Err:       fmt.Errorf("%w: %w", core.ErrSocket, err),
	})
}
