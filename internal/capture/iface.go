package capture

import (
	"fmt"
	"net"
	"net/netip"
)

// Interface is a local network interface and its unicast addresses.
type Interface struct {
	Name     string
	Index    int
	Addrs    []netip.Addr
	Up       bool
	Loopback bool
}

// IPv4 returns the first IPv4 address of the interface.
func (i Interface) IPv4() (netip.Addr, bool) {
	for _, a := range i.Addrs {
		if a.Is4() {
			return a, true
		}
	}
	return netip.Addr{}, false
}

// InterfaceSource enumerates local interfaces.
type InterfaceSource interface {
	Interfaces() ([]Interface, error)
}

// InterfaceSourceFunc adapts a plain function to InterfaceSource.
type InterfaceSourceFunc func() ([]Interface, error)

func (f InterfaceSourceFunc) Interfaces() ([]Interface, error) {
	return f()
}

// SystemInterfaces reads interfaces from the operating system.
type SystemInterfaces struct{}

func (SystemInterfaces) Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	out := make([]Interface, 0, len(ifaces))
	for _, ifi := range ifaces {
		addrs, err := ifi.Addrs()
		if err != nil {
			return nil, fmt.Errorf("list addresses of %s: %w", ifi.Name, err)
		}
		out = append(out, Interface{
			Name:     ifi.Name,
			Index:    ifi.Index,
			Addrs:    toAddrs(addrs),
			Up:       ifi.Flags&net.FlagUp != 0,
			Loopback: ifi.Flags&net.FlagLoopback != 0,
		})
	}
	return out, nil
}

func toAddrs(addrs []net.Addr) []netip.Addr {
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			out = append(out, addr.Unmap())
		}
	}
	return out
}
