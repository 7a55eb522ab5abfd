// Package core defines core types with zero external dependencies.
package core

import "strconv"

// Protocol is the classification of the IP protocol field.
type Protocol uint8

const (
	ProtocolOthers Protocol = iota
	ProtocolTCP
	ProtocolUDP
	ProtocolICMP
	ProtocolIGMP
	ProtocolGGP
	ProtocolIDP
	ProtocolND
	ProtocolPUP
	ProtocolIP
)

var protocolLabels = [...]string{
	ProtocolOthers: "OTHERS",
	ProtocolTCP:    "TCP",
	ProtocolUDP:    "UDP",
	ProtocolICMP:   "ICMP",
	ProtocolIGMP:   "IGMP",
	ProtocolGGP:    "GGP",
	ProtocolIDP:    "IDP",
	ProtocolND:     "ND",
	ProtocolPUP:    "PUP",
	ProtocolIP:     "IP",
}

// String returns the label shown to consumers, e.g. "TCP".
func (p Protocol) String() string {
	if int(p) < len(protocolLabels) {
		return protocolLabels[p]
	}
	return protocolLabels[ProtocolOthers]
}

// HasPorts reports whether the protocol carries 16-bit ports right after the IP header.
func (p Protocol) HasPorts() bool {
	return p == ProtocolTCP || p == ProtocolUDP
}

// Port is an optional transport port. The zero value means "absent".
type Port struct {
	Number uint16
	Valid  bool
}

// PortOf returns a present port.
func PortOf(n uint16) Port {
	return Port{Number: n, Valid: true}
}

// String returns the decimal port, or "" when absent.
func (p Port) String() string {
	if !p.Valid {
		return ""
	}
	return strconv.Itoa(int(p.Number))
}
