// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/sniffer/internal/core"
)

const (
	portsLen        = 4
	udpHeaderLen    = 8
	tcpHeaderMinLen = 20
)

type transportInfo struct {
	srcPort       core.Port
	dstPort       core.Port
	payloadOffset int
}

// decodeTransport reads the ports of a TCP/UDP segment starting at offset and
// locates the payload, which runs to the end of data. Protocols
// without ports get their payload right after the IP header.
func decodeTransport(data []byte, offset int, proto core.Protocol) transportInfo {
	info := transportInfo{payloadOffset: offset}
	if !proto.HasPorts() || len(data) < offset+portsLen {
		return info
	}

	segment := data[offset:]
	info.srcPort = core.PortOf(binary.BigEndian.Uint16(segment[0:2]))
	info.dstPort = core.PortOf(binary.BigEndian.Uint16(segment[2:4]))

	headerLen := udpHeaderLen
	if proto == core.ProtocolTCP {
		headerLen = tcpHeaderLen(segment)
	}
	info.payloadOffset = min(offset+headerLen, len(data))
	return info
}

// tcpHeaderLen returns the data offset in bytes, or the minimum header size
// when the field is missing or smaller than allowed.
func tcpHeaderLen(segment []byte) int {
	if len(segment) <= 12 {
		return tcpHeaderMinLen
	}
	n := int(segment[12]>>4) * 4
	if n < tcpHeaderMinLen {
		return tcpHeaderMinLen
	}
	return n
}
