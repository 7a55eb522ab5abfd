// Package core defines core data structures with zero external dependencies.
package core

import (
	"net/netip"
	"time"
)

// PacketRecord is one decoded datagram as delivered to consumers.
// A record owns RawBytes; nothing else holds a reference to them once
// the record has been emitted.
type PacketRecord struct {
	// Network context
	SrcIP          netip.Addr
	DstIP          netip.Addr
	SrcPort        Port // Valid only for TCP/UDP
	DstPort        Port
	Protocol       Protocol
	ProtocolNumber uint8
	Version        uint8
	HeaderLength   int
	TotalLength    int // as written in the IP header

	// Payload region inside RawBytes
	PayloadOffset int
	PayloadLength int

	// Capture context, set by the session
	Timestamp time.Time
	Capture   netip.Addr
	Interface string

	// Text views
	HexText     string
	PayloadText string

	RawBytes []byte
}

// Payload returns the payload region of RawBytes.
func (r *PacketRecord) Payload() []byte {
	end := r.PayloadOffset + r.PayloadLength
	if r.PayloadOffset < 0 || end > len(r.RawBytes) || r.PayloadLength < 0 {
		return nil
	}
	return r.RawBytes[r.PayloadOffset:end]
}

// HasPorts reports whether both transport ports were decoded.
func (r *PacketRecord) HasPorts() bool {
	return r.SrcPort.Valid && r.DstPort.Valid
}

// Source returns "ip" or "ip:port".
func (r *PacketRecord) Source() string {
	return endpoint(r.SrcIP, r.SrcPort)
}

// Destination returns "ip" or "ip:port".
func (r *PacketRecord) Destination() string {
	return endpoint(r.DstIP, r.DstPort)
}

func endpoint(addr netip.Addr, port Port) string {
	if !port.Valid {
		return addr.String()
	}
	return netip.AddrPortFrom(addr, port.Number).String()
}
