package capture

import (
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/sniffer/internal/core"
)

// fakeSocket replays scripted datagrams and errors until closed.
type fakeSocket struct {
	packets chan []byte
	errs    chan error

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSocket(backlog int) *fakeSocket {
	return &fakeSocket{
		packets: make(chan []byte, backlog),
		errs:    make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (f *fakeSocket) ReadPacketData(buf []byte) (int, gopacket.CaptureInfo, error) {
	select {
	case <-f.closed:
		return 0, gopacket.CaptureInfo{}, net.ErrClosed
	default:
	}

	select {
	case <-f.closed:
		return 0, gopacket.CaptureInfo{}, net.ErrClosed
	case err := <-f.errs:
		return 0, gopacket.CaptureInfo{}, err
	case p := <-f.packets:
		n := copy(buf, p)
		return n, gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: n, Length: len(p)}, nil
	}
}

func (f *fakeSocket) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSocket) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// fakeNet serves a fixed interface list and hands out fake sockets.
type fakeNet struct {
	mu      sync.Mutex
	ifaces  []Interface
	fail    map[netip.Addr]error
	sockets map[netip.Addr]*fakeSocket
	opened  []netip.Addr
}

func newFakeNet(ifaces ...Interface) *fakeNet {
	return &fakeNet{
		ifaces:  ifaces,
		fail:    make(map[netip.Addr]error),
		sockets: make(map[netip.Addr]*fakeSocket),
	}
}

func (n *fakeNet) Interfaces() ([]Interface, error) {
	return n.ifaces, nil
}

func (n *fakeNet) open(ifi Interface, addr netip.Addr, opts SocketOptions) (Socket, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.fail[addr]; err != nil {
		return nil, err
	}
	s := newFakeSocket(4096)
	n.sockets[addr] = s
	n.opened = append(n.opened, addr)
	return s, nil
}

func (n *fakeNet) socket(addr netip.Addr) *fakeSocket {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sockets[addr]
}

func iface(name string, index int, addrs ...string) Interface {
	ifi := Interface{Name: name, Index: index, Up: true}
	for _, a := range addrs {
		ifi.Addrs = append(ifi.Addrs, netip.MustParseAddr(a))
	}
	return ifi
}

// datagram builds an IPv4/UDP datagram carrying seq as its payload.
func datagram(src, dst string, seq uint16) []byte {
	s, d := netip.MustParseAddr(src).As4(), netip.MustParseAddr(dst).As4()
	b := []byte{
		0x45, 0x00, 0x00, 30,
		0x00, 0x00, 0x00, 0x00,
		64, 17, 0x00, 0x00,
	}
	b = append(b, s[:]...)
	b = append(b, d[:]...)
	b = append(b, 0x30, 0x39, 0x00, 0x35, 0x00, 10, 0x00, 0x00) // 12345 -> 53
	return append(b, byte(seq>>8), byte(seq))
}

// collectingSink records session output for direct session tests.
type collectingSink struct {
	mu       sync.Mutex
	records  []core.PacketRecord
	failures []SessionFailure
}

func (c *collectingSink) Emit(rec core.PacketRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

func (c *collectingSink) Fail(f SessionFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
}

func (c *collectingSink) snapshot() ([]core.PacketRecord, []SessionFailure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.PacketRecord(nil), c.records...), append([]SessionFailure(nil), c.failures...)
}
