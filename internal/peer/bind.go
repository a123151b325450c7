package peer

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/nettest"
)

var (
	ErrBind               = errors.New("cannot bind listening socket")
	ErrNoAddressAvailable = errors.New("no usable local ipv4 address")
)

// Bind opens a TCP listener on ip:port. A zero ip selects LocalIPv4 and a
// zero port lets the OS pick one. An explicit port that is busy fails with
// ErrBind; there is no fallback.
func Bind(ip netip.Addr, port uint16) (Address, *net.TCPListener, error) {
	if !ip.IsValid() {
		local, err := LocalIPv4()
		if err != nil {
			return Address{}, nil, fmt.Errorf("%w: %w", ErrBind, err)
		}
		ip = local
	}
	ip = ip.Unmap()

	if ip.IsUnspecified() {
		return Address{}, nil, fmt.Errorf("%w: %s cannot be advertised to a peer", ErrBind, ip)
	}

	ln, err := net.ListenTCP("tcp", net.TCPAddrFromAddrPort(netip.AddrPortFrom(ip, port)))
	if err != nil {
		return Address{}, nil, fmt.Errorf("%w: %w", ErrBind, err)
	}

	addr, err := AddressFromNet(ln.Addr())
	if err != nil {
		_ = ln.Close()
		return Address{}, nil, fmt.Errorf("%w: %w", ErrBind, err)
	}

	return addr, ln, nil
}

// LocalIPv4 returns the IPv4 address of the interface carrying the default
// route, or of the first up, non-loopback interface that has one.
func LocalIPv4() (netip.Addr, error) {
	if iface, err := nettest.RoutedInterface("ip4", net.FlagUp|net.FlagBroadcast); err == nil {
		if ip, ok := firstIPv4(iface); ok {
			return ip, nil
		}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %w", ErrNoAddressAvailable, err)
	}

	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ip, ok := firstIPv4(iface); ok {
			return ip, nil
		}
	}

	return netip.Addr{}, ErrNoAddressAvailable
}

func firstIPv4(iface *net.Interface) (netip.Addr, bool) {
	addrs, err := iface.Addrs()
	if err != nil {
		return netip.Addr{}, false
	}

	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if ip.Is4() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
			return ip, true
		}
	}
	return netip.Addr{}, false
}
