package decoder

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/sniffer/internal/core"
)

// ipv4Header builds a 20-byte IPv4 header 10.0.0.1 -> 10.0.0.2 followed by rest.
func ipv4Header(proto uint8, totalLen uint16, rest ...byte) []byte {
	data := []byte{
		0x45,                             // Version 4, IHL 5
		0x00,                             // DSCP, ECN
		byte(totalLen >> 8), byte(totalLen), // Total Length
		0x12, 0x34, // Identification
		0x00, 0x00, // Flags, Fragment Offset
		0x40,       // TTL: 64
		proto,      // Protocol
		0x00, 0x00, // Checksum
		10, 0, 0, 1, // Src IP
		10, 0, 0, 2, // Dst IP
	}
	return append(data, rest...)
}

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, ls...)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecodeTCPPorts(t *testing.T) {
	// 20-byte header + ports 80 -> 8080 and nothing else
	data := ipv4Header(6, 24, 0x00, 0x50, 0x1F, 0x90)

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, core.ProtocolTCP, rec.Protocol)
	assert.Equal(t, core.PortOf(80), rec.SrcPort)
	assert.Equal(t, core.PortOf(8080), rec.DstPort)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), rec.SrcIP)
	assert.Equal(t, netip.MustParseAddr("10.0.0.2"), rec.DstIP)
	assert.Equal(t, 24, rec.TotalLength)
	assert.Equal(t, 0, rec.PayloadLength)
}

func TestDecodeICMPWithoutPorts(t *testing.T) {
	data := ipv4Header(1, 20)

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, core.ProtocolICMP, rec.Protocol)
	assert.False(t, rec.SrcPort.Valid)
	assert.False(t, rec.DstPort.Valid)
	assert.Equal(t, "", rec.SrcPort.String())
	assert.Equal(t, 20, rec.PayloadOffset)
	assert.Equal(t, 0, rec.PayloadLength)
}

func TestClassify(t *testing.T) {
	expected := map[uint8]core.Protocol{
		1:  core.ProtocolICMP,
		2:  core.ProtocolIGMP,
		3:  core.ProtocolGGP,
		4:  core.ProtocolIP,
		6:  core.ProtocolTCP,
		12: core.ProtocolPUP,
		17: core.ProtocolUDP,
		22: core.ProtocolIDP,
		77: core.ProtocolND,
	}

	for n := 0; n <= 255; n++ {
		want, ok := expected[uint8(n)]
		if !ok {
			want = core.ProtocolOthers
		}
		if got := Classify(uint8(n)); got != want {
			t.Errorf("Classify(%d) = %s, expected %s", n, got, want)
		}
	}
}

func TestDecodeRecognizedProtocols(t *testing.T) {
	tests := []struct {
		number uint8
		label  string
	}{
		{1, "ICMP"}, {2, "IGMP"}, {3, "GGP"}, {4, "IP"}, {6, "TCP"},
		{12, "PUP"}, {17, "UDP"}, {22, "IDP"}, {77, "ND"},
		{0, "OTHERS"}, {41, "OTHERS"}, {58, "OTHERS"}, {132, "OTHERS"}, {255, "OTHERS"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			rec, err := Decode(ipv4Header(tt.number, 28, make([]byte, 8)...))
			require.NoError(t, err)
			assert.Equal(t, tt.label, rec.Protocol.String())
			assert.Equal(t, tt.number, rec.ProtocolNumber)
		})
	}
}

func TestDecodeTooShort(t *testing.T) {
	full := ipv4Header(6, 20)
	for n := 0; n < ipv4HeaderMinLen; n++ {
		_, err := Decode(full[:n])
		assert.ErrorIs(t, err, core.ErrTooShort, "length %d", n)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		data func() []byte
	}{
		{"IHLBelowMinimum", func() []byte {
			d := ipv4Header(6, 20)
			d[0] = 0x44
			return d
		}},
		{"IHLPastBuffer", func() []byte {
			d := ipv4Header(6, 40, make([]byte, 10)...)
			d[0] = 0x4F // 60-byte header, 30-byte buffer
			return d
		}},
		{"UnknownVersion", func() []byte {
			d := ipv4Header(6, 20)
			d[0] = 0x75
			return d
		}},
		{"TruncatedIPv6", func() []byte {
			d := make([]byte, 30)
			d[0] = 0x60
			return d
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data())
			assert.ErrorIs(t, err, core.ErrMalformedHeader)
		})
	}
}

func TestDecodeTotalLengthLargerThanBuffer(t *testing.T) {
	data := ipv4Header(1, 1000, 1, 2, 3, 4, 5, 6, 7, 8)

	rec, err := Decode(data)
	require.NoError(t, err)

	// The header value is reported, reads stop at the buffer end.
	assert.Equal(t, 1000, rec.TotalLength)
	assert.Equal(t, 8, rec.PayloadLength)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, rec.Payload())
}

func TestDecodeTotalLengthSmallerThanBuffer(t *testing.T) {
	data := ipv4Header(1, 28, 1, 2, 3, 4, 5, 6, 7, 8)
	data = append(data, make([]byte, 18)...)

	rec, err := Decode(data)
	require.NoError(t, err)

	// The header value is reported, the payload runs to the buffer end.
	assert.Equal(t, 28, rec.TotalLength)
	assert.Equal(t, 20, rec.PayloadOffset)
	assert.Equal(t, 26, rec.PayloadLength)
	assert.Len(t, rec.RawBytes, 46)
}

func TestDecodePortsBeyondTotalLength(t *testing.T) {
	tests := []struct {
		name          string
		data          []byte
		protocol      core.Protocol
		src, dst      uint16
		payloadOffset int
	}{
		{
			name:          "tcp",
			data:          ipv4Header(6, 20, 0x00, 0x50, 0x1F, 0x90),
			protocol:      core.ProtocolTCP,
			src:           80,
			dst:           8080,
			payloadOffset: 24,
		},
		{
			name:          "udp",
			data:          ipv4Header(17, 21, 0x00, 0x35, 0x14, 0xE9, 0x00, 0x0A, 0x00, 0x00, 'o', 'k'),
			protocol:      core.ProtocolUDP,
			src:           53,
			dst:           5353,
			payloadOffset: 28,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Decode(tt.data)
			require.NoError(t, err)

			assert.Equal(t, tt.protocol, rec.Protocol)
			assert.Less(t, rec.TotalLength, len(tt.data))
			assert.Equal(t, core.PortOf(tt.src), rec.SrcPort)
			assert.Equal(t, core.PortOf(tt.dst), rec.DstPort)
			assert.Equal(t, tt.payloadOffset, rec.PayloadOffset)
			assert.Equal(t, len(tt.data)-tt.payloadOffset, rec.PayloadLength)
		})
	}
}

func TestDecodeZeroTotalLength(t *testing.T) {
	// Offloaded segments can carry a zero total length.
	data := ipv4Header(17, 0, 0x00, 0x35, 0x00, 0x35, 0x00, 0x0A, 0x00, 0x00, 'h', 'i')

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, 0, rec.TotalLength)
	assert.Equal(t, []byte("hi"), rec.Payload())
}

func TestDecodePortsNeedFourBytes(t *testing.T) {
	rec, err := Decode(ipv4Header(17, 23, 0x00, 0x35, 0x00))
	require.NoError(t, err)

	assert.Equal(t, core.ProtocolUDP, rec.Protocol)
	assert.False(t, rec.HasPorts())
	assert.Equal(t, 20, rec.PayloadOffset)
	assert.Equal(t, 3, rec.PayloadLength)
}

func TestDecodeTruncatedUDPHeader(t *testing.T) {
	rec, err := Decode(ipv4Header(17, 26, 0x00, 0x35, 0x14, 0xE9, 0x00, 0x0E))
	require.NoError(t, err)

	assert.Equal(t, core.PortOf(53), rec.SrcPort)
	assert.Equal(t, core.PortOf(5353), rec.DstPort)
	assert.Equal(t, 26, rec.PayloadOffset)
	assert.Equal(t, 0, rec.PayloadLength)
}

func TestDecodeIPv4Options(t *testing.T) {
	data := ipv4Header(17, 36,
		0x01, 0x01, 0x01, 0x00, // 4 bytes of options (NOP NOP NOP EOL)
		0x04, 0xD2, 0x16, 0x2E, 0x00, 0x0C, 0x00, 0x00, // UDP 1234 -> 5678
		'a', 'b', 'c', 'd',
	)
	data[0] = 0x46

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, 24, rec.HeaderLength)
	assert.Equal(t, core.PortOf(1234), rec.SrcPort)
	assert.Equal(t, core.PortOf(5678), rec.DstPort)
	assert.Equal(t, []byte("abcd"), rec.Payload())
}

func TestDecodeTCPDataOffset(t *testing.T) {
	tcp := make([]byte, 32+3)
	tcp[0], tcp[1] = 0x01, 0xBB // 443
	tcp[2], tcp[3] = 0xC3, 0x50 // 50000
	tcp[12] = 8 << 4            // 32-byte header
	copy(tcp[32:], "xyz")

	rec, err := Decode(ipv4Header(6, uint16(20+len(tcp)), tcp...))
	require.NoError(t, err)

	assert.Equal(t, 52, rec.PayloadOffset)
	assert.Equal(t, []byte("xyz"), rec.Payload())
}

func TestDecodeSerializedTCP(t *testing.T) {
	data := serialize(t,
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    net.IP{192, 168, 1, 10},
			DstIP:    net.IP{93, 184, 216, 34},
		},
		&layers.TCP{SrcPort: 51000, DstPort: 80, Seq: 1, PSH: true, ACK: true, Window: 512},
		gopacket.Payload("GET / HTTP/1.1\r\n"),
	)

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, uint8(4), rec.Version)
	assert.Equal(t, core.ProtocolTCP, rec.Protocol)
	assert.Equal(t, "192.168.1.10:51000", rec.Source())
	assert.Equal(t, "93.184.216.34:80", rec.Destination())
	assert.Equal(t, len(data), rec.TotalLength)
	assert.Equal(t, []byte("GET / HTTP/1.1\r\n"), rec.Payload())
}

func TestDecodeSerializedUDP(t *testing.T) {
	data := serialize(t,
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IP{10, 1, 1, 1},
			DstIP:    net.IP{8, 8, 8, 8},
		},
		&layers.UDP{SrcPort: 40000, DstPort: 53},
		gopacket.Payload([]byte{0xAB, 0xCD}),
	)

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, core.ProtocolUDP, rec.Protocol)
	assert.Equal(t, core.PortOf(40000), rec.SrcPort)
	assert.Equal(t, core.PortOf(53), rec.DstPort)
	assert.Equal(t, []byte{0xAB, 0xCD}, rec.Payload())
}

func TestDecodeSerializedICMP(t *testing.T) {
	data := serialize(t,
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    net.IP{10, 1, 1, 1},
			DstIP:    net.IP{10, 1, 1, 254},
		},
		&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 7, Seq: 1},
		gopacket.Payload("ping"),
	)

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, core.ProtocolICMP, rec.Protocol)
	assert.False(t, rec.HasPorts())
	// ICMP header bytes belong to the payload region.
	assert.Equal(t, 8+4, rec.PayloadLength)
}

func TestDecodeSerializedIPv6(t *testing.T) {
	data := serialize(t,
		&layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      net.ParseIP("2001:db8::1"),
			DstIP:      net.ParseIP("2001:db8::2"),
		},
		&layers.UDP{SrcPort: 546, DstPort: 547},
		gopacket.Payload("dhcp"),
	)

	rec, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, uint8(6), rec.Version)
	assert.Equal(t, 40, rec.HeaderLength)
	assert.Equal(t, len(data), rec.TotalLength)
	assert.Equal(t, netip.MustParseAddr("2001:db8::1"), rec.SrcIP)
	assert.Equal(t, netip.MustParseAddr("2001:db8::2"), rec.DstIP)
	assert.Equal(t, core.PortOf(546), rec.SrcPort)
	assert.Equal(t, []byte("dhcp"), rec.Payload())
}

func TestStandardDecoder(t *testing.T) {
	data := ipv4Header(2, 20)

	rec, err := Standard.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, core.ProtocolIGMP, rec.Protocol)
}
