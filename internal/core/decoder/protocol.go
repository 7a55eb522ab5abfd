package decoder

import (
	"github.com/google/gopacket/layers"

	"firestige.xyz/sniffer/internal/core"
)

// IANA assigned internet protocol numbers that gopacket does not name.
const (
	protocolGGP = 3  // Gateway-to-Gateway
	protocolPUP = 12 // PARC Universal Packet
	protocolIDP = 22 // XNS Internet Datagram Protocol (XNS-IDP)
	protocolND  = 77 // Sun ND
)

// Classify maps an IP protocol number onto its label. Unknown numbers are
// classified as OTHERS.
func Classify(n uint8) core.Protocol {
	switch layers.IPProtocol(n) {
	case layers.IPProtocolTCP:
		return core.ProtocolTCP
	case layers.IPProtocolUDP:
		return core.ProtocolUDP
	case layers.IPProtocolICMPv4:
		return core.ProtocolICMP
	case layers.IPProtocolIGMP:
		return core.ProtocolIGMP
	case layers.IPProtocolIPv4:
		return core.ProtocolIP
	case protocolGGP:
		return core.ProtocolGGP
	case protocolPUP:
		return core.ProtocolPUP
	case protocolIDP:
		return core.ProtocolIDP
	case protocolND:
		return core.ProtocolND
	default:
		return core.ProtocolOthers
	}
}
