package capture

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"golang.org/x/net/bpf"
)

// Offsets of the IPv4 addresses in a datagram without link header.
const (
	ipv4SrcOffset = 12
	ipv4DstOffset = 16
)

// addressFilter assembles a socket filter accepting IPv4 datagrams whose
// source or destination is addr, truncated to snapLen.
func addressFilter(addr netip.Addr, snapLen int) ([]bpf.RawInstruction, error) {
	if !addr.Is4() {
		return nil, fmt.Errorf("address filter needs an IPv4 address, got %s", addr)
	}
	a4 := addr.As4()
	want := binary.BigEndian.Uint32(a4[:])

	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: ipv4SrcOffset, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: want, SkipTrue: 2},
		bpf.LoadAbsolute{Off: ipv4DstOffset, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: want, SkipFalse: 1},
		bpf.RetConstant{Val: uint32(snapLen)},
		bpf.RetConstant{Val: 0},
	}
	return bpf.Assemble(prog)
}
