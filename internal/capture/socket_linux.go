//go:build linux

package capture

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"

	"firestige.xyz/sniffer/internal/core"
)

// packetSocket is an AF_PACKET datagram socket. The kernel strips the link
// header, so every read starts at the IP header.
type packetSocket struct {
	conn    *packet.Conn
	ifindex int
}

// OpenSocket opens an AF_PACKET socket on ifi receiving the IP version of
// addr. It fails with core.ErrPermissionDenied without CAP_NET_RAW and with
// core.ErrSocketOpenFailed otherwise.
func OpenSocket(ifi Interface, addr netip.Addr, opts SocketOptions) (Socket, error) {
	proto := unix.ETH_P_IP
	if addr.Is6() && !addr.Is4In6() {
		proto = unix.ETH_P_IPV6
	}

	cfg := &packet.Config{}
	if opts.FilterByAddress && addr.Is4() {
		filter, err := addressFilter(addr, opts.SnapLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrSocketOpenFailed, err)
		}
		cfg.Filter = filter
	}

	nifi := &net.Interface{Index: ifi.Index, Name: ifi.Name}
	conn, err := packet.Listen(nifi, packet.Datagram, proto, cfg)
	if err != nil {
		return nil, classifyOpenError(err)
	}

	if opts.Promiscuous {
		if err := conn.SetPromiscuous(true); err != nil {
			conn.Close()
			return nil, classifyOpenError(err)
		}
	}

	return &packetSocket{conn: conn, ifindex: ifi.Index}, nil
}

func classifyOpenError(err error) error {
	if errors.Is(err, os.ErrPermission) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		return fmt.Errorf("%w: %w", core.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", core.ErrSocketOpenFailed, err)
}

func (s *packetSocket) ReadPacketData(buf []byte) (int, gopacket.CaptureInfo, error) {
	n, _, err := s.conn.ReadFrom(buf)
	if err != nil {
		return 0, gopacket.CaptureInfo{}, err
	}
	return n, gopacket.CaptureInfo{
		Timestamp:      time.Now(),
		CaptureLength:  n,
		Length:         n,
		InterfaceIndex: s.ifindex,
	}, nil
}

func (s *packetSocket) Close() error {
	return s.conn.Close()
}
