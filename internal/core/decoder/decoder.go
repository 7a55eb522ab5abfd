// Package decoder implements L3-L4 header decoding of captured IP datagrams.
package decoder

import "firestige.xyz/sniffer/internal/core"

// Decoder decodes raw datagrams into records.
type Decoder interface {
	Decode(raw []byte) (core.PacketRecord, error)
}

// DecoderFunc adapts a plain function to Decoder.
type DecoderFunc func(raw []byte) (core.PacketRecord, error)

// Decode calls f(raw).
func (f DecoderFunc) Decode(raw []byte) (core.PacketRecord, error) {
	return f(raw)
}

// Standard is the stateless header decoder used by capture sessions.
var Standard Decoder = DecoderFunc(Decode)

// Decode parses raw as an IPv4 or IPv6 datagram starting at the IP header.
//
// The returned record references raw as RawBytes without copying; callers
// that reuse the buffer must pass an owned copy. Timestamp, capture context
// and text views are left for the caller to fill in.
//
// Decode fails with core.ErrTooShort for buffers under 20 bytes and with
// core.ErrMalformedHeader when the header contradicts the buffer. It never
// reads outside raw.
func Decode(raw []byte) (core.PacketRecord, error) {
	if len(raw) < ipv4HeaderMinLen {
		return core.PacketRecord{}, core.ErrTooShort
	}

	ip, err := decodeIP(raw)
	if err != nil {
		return core.PacketRecord{}, err
	}

	rec := core.PacketRecord{
		SrcIP:          ip.src,
		DstIP:          ip.dst,
		Protocol:       Classify(ip.protocol),
		ProtocolNumber: ip.protocol,
		Version:        ip.version,
		HeaderLength:   ip.headerLen,
		TotalLength:    ip.totalLen,
		RawBytes:       raw,
	}

	// TotalLength is only reported; ports and payload follow the buffer.
	tr := decodeTransport(raw, ip.headerLen, rec.Protocol)
	rec.SrcPort = tr.srcPort
	rec.DstPort = tr.dstPort
	rec.PayloadOffset = tr.payloadOffset
	rec.PayloadLength = len(raw) - tr.payloadOffset

	return rec, nil
}
