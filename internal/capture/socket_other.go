//go:build !linux

package capture

import (
	"net/netip"

	"firestige.xyz/sniffer/internal/core"
)

// OpenSocket is only implemented on Linux.
func OpenSocket(ifi Interface, addr netip.Addr, opts SocketOptions) (Socket, error) {
	return nil, core.ErrUnsupportedPlatform
}
