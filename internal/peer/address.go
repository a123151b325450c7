// Package peer encodes the address a sender listens on as a short hex token
// and binds the listening socket behind it.
package peer

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

const (
	ipv4TokenLen = (net.IPv4len + 2) * 2
	ipv6TokenLen = (net.IPv6len + 2) * 2
)

var ErrInvalidAddressFormat = errors.New("invalid peer address format")

// Address is the reachable endpoint of a sender.
type Address struct {
	IP   netip.Addr
	Port uint16
}

// NewAddress unmaps ip and drops any IPv6 zone, which a token cannot carry.
func NewAddress(ip netip.Addr, port uint16) Address {
	return Address{IP: ip.Unmap().WithZone(""), Port: port}
}

// AddressFromNet converts a TCP address returned by the net package.
func AddressFromNet(addr net.Addr) (Address, error) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return Address{}, fmt.Errorf("%w: not a tcp address: %v", ErrInvalidAddressFormat, addr)
	}
	ap := tcp.AddrPort()
	return NewAddress(ap.Addr(), ap.Port()), nil
}

func (a Address) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(a.IP, a.Port)
}

func (a Address) IsValid() bool {
	return a.IP.IsValid() && a.Port != 0
}

// Encode returns the address bytes followed by the big-endian port, as
// uppercase hex. 127.0.0.1:8080 becomes "7F0000011F90".
func (a Address) Encode() string {
	ip := a.IP.Unmap()
	raw := ip.AsSlice()
	buf := make([]byte, len(raw)+2)
	copy(buf, raw)
	binary.BigEndian.PutUint16(buf[len(raw):], a.Port)
	return strings.ToUpper(hex.EncodeToString(buf))
}

func (a Address) String() string {
	return a.Encode()
}

// Decode parses a token produced by Encode. Case is ignored.
func Decode(token string) (Address, error) {
	token = strings.TrimSpace(token)
	if len(token) != ipv4TokenLen && len(token) != ipv6TokenLen {
		return Address{}, fmt.Errorf("%w: token %q has length %d", ErrInvalidAddressFormat, token, len(token))
	}

	buf, err := hex.DecodeString(token)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddressFormat, err)
	}

	n := len(buf) - 2
	ip, ok := netip.AddrFromSlice(buf[:n])
	if !ok {
		return Address{}, fmt.Errorf("%w: bad ip bytes", ErrInvalidAddressFormat)
	}
	port := binary.BigEndian.Uint16(buf[n:])
	if port == 0 {
		return Address{}, fmt.Errorf("%w: port is zero", ErrInvalidAddressFormat)
	}

	return NewAddress(ip, port), nil
}
