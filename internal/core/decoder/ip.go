// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/sniffer/internal/core"
)

const (
	ipv4HeaderMinLen = 20
	ipv6HeaderLen    = 40
)

// ipHeader holds the fields of an IP header needed to build a record.
type ipHeader struct {
	version   uint8
	headerLen int
	totalLen  int
	protocol  uint8
	src       netip.Addr
	dst       netip.Addr
}

// decodeIP dispatches on the version nibble. data holds at least 20 bytes.
func decodeIP(data []byte) (ipHeader, error) {
	switch data[0] >> 4 {
	case 4:
		return decodeIPv4(data)
	case 6:
		return decodeIPv6(data)
	default:
		return ipHeader{}, core.ErrMalformedHeader
	}
}

// decodeIPv4 decodes IPv4 header.
func decodeIPv4(data []byte) (ipHeader, error) {
	if len(data) < ipv4HeaderMinLen {
		return ipHeader{}, core.ErrTooShort
	}

	// IHL is in 32-bit words
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || headerLen > len(data) {
		return ipHeader{}, core.ErrMalformedHeader
	}

	ip := ipHeader{
		version:   4,
		headerLen: headerLen,
		totalLen:  int(binary.BigEndian.Uint16(data[2:4])),
		protocol:  data[9],
		src:       netip.AddrFrom4([4]byte(data[12:16])),
		dst:       netip.AddrFrom4([4]byte(data[16:20])),
	}
	return ip, nil
}

// decodeIPv6 decodes the fixed IPv6 header. Extension headers are not walked,
// so the next-header byte is reported as the protocol.
func decodeIPv6(data []byte) (ipHeader, error) {
	if len(data) < ipv6HeaderLen {
		return ipHeader{}, core.ErrMalformedHeader
	}

	payloadLen := int(binary.BigEndian.Uint16(data[4:6]))
	ip := ipHeader{
		version:   6,
		headerLen: ipv6HeaderLen,
		totalLen:  ipv6HeaderLen + payloadLen,
		protocol:  data[6],
		src:       netip.AddrFrom16([16]byte(data[8:24])),
		dst:       netip.AddrFrom16([16]byte(data[24:40])),
	}
	return ip, nil
}
