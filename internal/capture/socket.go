// Package capture runs raw IP capture sessions and fans their records into
// a single consumer queue.
package capture

import (
	"errors"
	"net"
	"net/netip"
	"os"

	"github.com/google/gopacket"
)

// DefaultSnapLen holds the largest IPv4 datagram.
const DefaultSnapLen = 65535

// Socket is a raw capture endpoint delivering IP datagrams starting at the
// IP header. Close must unblock a pending ReadPacketData.
type Socket interface {
	ReadPacketData(buf []byte) (int, gopacket.CaptureInfo, error)
	Close() error
}

// SocketOptions configures a capture socket.
type SocketOptions struct {
	SnapLen         int
	Promiscuous     bool
	FilterByAddress bool
}

// Opener opens a socket capturing the traffic of addr on ifi.
type Opener func(ifi Interface, addr netip.Addr, opts SocketOptions) (Socket, error)

// isClosed reports whether err is the result of reading from a closed socket.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)
}
