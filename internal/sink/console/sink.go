// Package console prints captured records to a terminal.
package console

import (
	"encoding/json"
	"fmt"
	"io"

	"firestige.xyz/sniffer/internal/core"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHex  = "hex"
)

// Sink writes one entry per record.
type Sink struct {
	w      io.Writer
	format string
}

// NewSink creates a sink writing to w in format.
func NewSink(w io.Writer, format string) (*Sink, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatHex:
	default:
		return nil, fmt.Errorf("invalid format %q, must be text, json or hex", format)
	}
	return &Sink{w: w, format: format}, nil
}

// Consume writes rec.
func (s *Sink) Consume(rec core.PacketRecord) error {
	switch s.format {
	case FormatJSON:
		return s.writeJSON(rec)
	case FormatHex:
		return s.writeHex(rec)
	default:
		return s.writeText(rec)
	}
}

type jsonRecord struct {
	Timestamp      string  `json:"timestamp"`
	Interface      string  `json:"interface"`
	Capture        string  `json:"capture"`
	Version        uint8   `json:"version"`
	Protocol       string  `json:"protocol"`
	ProtocolNumber uint8   `json:"protocol_number"`
	SrcIP          string  `json:"src_ip"`
	DstIP          string  `json:"dst_ip"`
	SrcPort        *uint16 `json:"src_port,omitempty"`
	DstPort        *uint16 `json:"dst_port,omitempty"`
	TotalLength    int     `json:"total_length"`
	PayloadLength  int     `json:"payload_length"`
	Payload        string  `json:"payload_text"`
	Raw            []byte  `json:"raw"`
}

func portPtr(p core.Port) *uint16 {
	if !p.Valid {
		return nil
	}
	n := p.Number
	return &n
}

func (s *Sink) writeJSON(rec core.PacketRecord) error {
	data, err := json.Marshal(jsonRecord{
		Timestamp:      rec.Timestamp.Format("2006-01-02T15:04:05.000000Z07:00"),
		Interface:      rec.Interface,
		Capture:        rec.Capture.String(),
		Version:        rec.Version,
		Protocol:       rec.Protocol.String(),
		ProtocolNumber: rec.ProtocolNumber,
		SrcIP:          rec.SrcIP.String(),
		DstIP:          rec.DstIP.String(),
		SrcPort:        portPtr(rec.SrcPort),
		DstPort:        portPtr(rec.DstPort),
		TotalLength:    rec.TotalLength,
		PayloadLength:  rec.PayloadLength,
		Payload:        rec.PayloadText,
		Raw:            rec.RawBytes,
	})
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}
	_, err = fmt.Fprintln(s.w, string(data))
	return err
}

// writeText prints a one-line summary, e.g.
// 12:00:00.000 eth0 TCP 10.0.0.1:80 -> 10.0.0.2:8080 len=60 payload=20
func (s *Sink) writeText(rec core.PacketRecord) error {
	_, err := fmt.Fprintf(s.w, "%s %s %-6s %s -> %s len=%d payload=%d\n",
		rec.Timestamp.Format("15:04:05.000"),
		rec.Interface,
		rec.Protocol,
		rec.Source(),
		rec.Destination(),
		rec.TotalLength,
		rec.PayloadLength,
	)
	return err
}

// writeHex prints the summary followed by the hex and payload views.
func (s *Sink) writeHex(rec core.PacketRecord) error {
	if err := s.writeText(rec); err != nil {
		return err
	}
	_, err := fmt.Fprintf(s.w, "%s\n--\n%s\n\n", rec.HexText, rec.PayloadText)
	return err
}
