package capture

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"firestige.xyz/sniffer/internal/core"
	"firestige.xyz/sniffer/internal/log"
	"firestige.xyz/sniffer/internal/metrics"
)

// DefaultQueueCapacity is the default size of the Records queue.
const DefaultQueueCapacity = 65536

// Options configures a Coordinator.
type Options struct {
	Socket          SocketOptions
	IncludeLoopback bool
	IncludeIPv6     bool
	QueueCapacity   int
}

// Selection chooses the interfaces a run captures on.
type Selection struct {
	all   bool
	iface string
}

// SelectAll captures on every local address.
func SelectAll() Selection { return Selection{all: true} }

// SelectInterface captures on the IPv4 address of the named interface.
func SelectInterface(name string) Selection { return Selection{iface: name} }

func (s Selection) String() string {
	if s.all {
		return "all"
	}
	return s.iface
}

// AddressError is a session that could not be started.
type AddressError struct {
	Addr      netip.Addr
	Interface string
	Err       error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Addr, e.Interface, e.Err)
}

func (e *AddressError) Unwrap() error { return e.Err }

// StartFailures collects the addresses that failed while starting an "all
// interfaces" run. Sessions on the other addresses keep running.
type StartFailures struct {
	Errors  []*AddressError
	Running int
}

func (e *StartFailures) Error() string {
	parts := make([]string, len(e.Errors))
	for i, ae := range e.Errors {
		parts[i] = ae.Error()
	}
	return fmt.Sprintf("capture failed to start on %d address(es), %d running: %s",
		len(e.Errors), e.Running, strings.Join(parts, "; "))
}

func (e *StartFailures) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, ae := range e.Errors {
		errs[i] = ae
	}
	return errs
}

// SessionInfo describes one session of the current or last run.
type SessionInfo struct {
	Addr      netip.Addr
	Interface string
	State     SessionState
	Stats     SessionStats
}

type target struct {
	iface Interface
	addr  netip.Addr
}

// Coordinator owns the sessions of a capture run and merges their records
// into one queue.
type Coordinator struct {
	opts   Options
	ifaces InterfaceSource
	open   Opener

	mu       sync.Mutex
	running  bool
	runID    string
	sessions map[netip.Addr]*Session
	records  chan core.PacketRecord
	failures chan SessionFailure
	dropped  atomic.Uint64
}

// NewCoordinator creates a stopped coordinator. A nil open uses OpenSocket
// and a nil ifaces uses SystemInterfaces.
func NewCoordinator(opts Options, ifaces InterfaceSource, open Opener) *Coordinator {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.Socket.SnapLen <= 0 {
		opts.Socket.SnapLen = DefaultSnapLen
	}
	if ifaces == nil {
		ifaces = SystemInterfaces{}
	}
	if open == nil {
		open = OpenSocket
	}
	return &Coordinator{
		opts:     opts,
		ifaces:   ifaces,
		open:     open,
		sessions: make(map[netip.Addr]*Session),
	}
}

// Start begins a run on the selected interfaces.
//
// With SelectAll, addresses that fail to open are reported as *StartFailures
// while the rest keep running. With SelectInterface any failure fails the
// call. Start on a running coordinator returns core.ErrAlreadyRunning.
func (c *Coordinator) Start(sel Selection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return core.ErrAlreadyRunning
	}

	targets, err := c.resolve(sel)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := log.GetLogger().WithFields(map[string]interface{}{"run": runID, "selection": sel.String()})

	records := make(chan core.PacketRecord, c.opts.QueueCapacity)
	// One slot per session so a failure report never blocks.
	failures := make(chan SessionFailure, len(targets))
	sink := &runSink{records: records, failures: failures, dropped: &c.dropped, logger: logger}

	c.dropped.Store(0)
	sessions := make(map[netip.Addr]*Session, len(targets))
	var startErrs []*AddressError
	for _, t := range targets {
		s := NewSession(t.iface, t.addr, c.opts.Socket, c.open, sink)
		if err := s.Start(); err != nil {
			logger.WithError(err).WithField("addr", t.addr.String()).Warn("capture session did not start")
			startErrs = append(startErrs, &AddressError{Addr: t.addr, Interface: t.iface.Name, Err: err})
			continue
		}
		sessions[t.addr] = s
	}

	if !sel.all && len(startErrs) > 0 {
		close(records)
		close(failures)
		return startErrs[0].Err
	}

	c.sessions = sessions
	c.records = records
	c.failures = failures
	c.runID = runID

	if len(sessions) == 0 {
		close(records)
		close(failures)
	} else {
		c.running = true
	}
	logger.WithFields(map[string]interface{}{"sessions": len(sessions), "failed": len(startErrs)}).Info("capture started")

	if len(startErrs) > 0 {
		return &StartFailures{Errors: startErrs, Running: len(sessions)}
	}
	return nil
}

func (c *Coordinator) resolve(sel Selection) ([]target, error) {
	ifaces, err := c.ifaces.Interfaces()
	if err != nil {
		return nil, err
	}

	if !sel.all {
		for _, ifi := range ifaces {
			if ifi.Name != sel.iface {
				continue
			}
			addr, ok := ifi.IPv4()
			if !ok {
				return nil, fmt.Errorf("%w: %s", core.ErrNoIPv4Address, ifi.Name)
			}
			return []target{{iface: ifi, addr: addr}}, nil
		}
		return nil, fmt.Errorf("%w: %q", core.ErrNoSuchInterface, sel.iface)
	}

	seen := make(map[netip.Addr]bool)
	var targets []target
	for _, ifi := range ifaces {
		if !ifi.Up || (ifi.Loopback && !c.opts.IncludeLoopback) {
			continue
		}
		for _, addr := range ifi.Addrs {
			if !addr.Is4() && !c.opts.IncludeIPv6 {
				continue
			}
			if seen[addr] {
				continue
			}
			seen[addr] = true
			targets = append(targets, target{iface: ifi, addr: addr})
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no capturable local address", core.ErrNoIPv4Address)
	}
	return targets, nil
}

// Stop stops every session of the run and closes the Records and Failures
// channels. It is idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	var wg sync.WaitGroup
	for _, s := range c.sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Stop()
		}(s)
	}
	wg.Wait()

	// No session goroutine is left to send.
	close(c.records)
	close(c.failures)
	c.running = false
	metrics.RecordsQueueLength.Set(0)

	log.GetLogger().WithFields(map[string]interface{}{"run": c.runID, "dropped": c.dropped.Load()}).Info("capture stopped")
}

// Running reports whether a run is active.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// RunID identifies the current or last run.
func (c *Coordinator) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Records returns the record queue of the current or last run. It is closed
// by Stop. Nil before the first Start.
func (c *Coordinator) Records() <-chan core.PacketRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}

// Failures returns the failure queue of the current or last run. It is
// closed by Stop.
func (c *Coordinator) Failures() <-chan SessionFailure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// Dropped returns the number of records dropped on a full queue in the
// current or last run.
func (c *Coordinator) Dropped() uint64 {
	return c.dropped.Load()
}

// Sessions returns a snapshot of the sessions of the current or last run,
// sorted by address.
func (c *Coordinator) Sessions() []SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SessionInfo, 0, len(c.sessions))
	for addr, s := range c.sessions {
		out = append(out, SessionInfo{
			Addr:      addr,
			Interface: s.Interface().Name,
			State:     s.State(),
			Stats:     s.Stats(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr.Less(out[j].Addr) })
	return out
}

// runSink hands session output to the channels of one run.
type runSink struct {
	records  chan core.PacketRecord
	failures chan SessionFailure
	dropped  *atomic.Uint64
	logger   log.Logger
}

func (r *runSink) Emit(rec core.PacketRecord) {
	select {
	case r.records <- rec:
		metrics.RecordsQueueLength.Set(float64(len(r.records)))
	default:
		r.dropped.Add(1)
		metrics.CaptureDropsTotal.WithLabelValues(metrics.StageQueue).Inc()
	}
}

func (r *runSink) Fail(f SessionFailure) {
	select {
	case r.failures <- f:
	default:
		r.logger.WithError(f).Error("failure queue full, dropping report")
	}
}

// IsStartFailures reports whether err carries per-address start failures.
func IsStartFailures(err error) (*StartFailures, bool) {
	var sf *StartFailures
	ok := errors.As(err, &sf)
	return sf, ok
}
