package modbus

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"
)

// Dialer opens the stream a Client talks over. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ParseNetworkAddress accepts an IPv4 or IPv6 address with an optional port,
// e.g. "192.168.0.10", "192.168.0.10:503", "::1" or "[::1]:504".
// defaultPort is used when address carries no port.
func ParseNetworkAddress(address string, defaultPort uint16) (netip.AddrPort, error) {
	if address == "" {
		return netip.AddrPort{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if defaultPort == 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: default port must not be zero", ErrInvalidAddress)
	}
	if ap, err := netip.ParseAddrPort(address); err == nil {
		if ap.Port() == 0 {
			return netip.AddrPort{}, fmt.Errorf("%w: port of %q must not be zero", ErrInvalidAddress, address)
		}
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
	}
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %q is neither an IP address nor address:port", ErrInvalidAddress, address)
	}
	return netip.AddrPortFrom(addr.Unmap(), defaultPort), nil
}

// dialTCP connects to target and disables Nagle's algorithm so every
// request leaves in its own segment.
func dialTCP(ctx context.Context, d Dialer, target netip.AddrPort) (net.Conn, error) {
	conn, err := d.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return nil, fmt.Errorf("modbus: connect to %s: %w", target, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, fmt.Errorf("modbus: set nodelay on %s: %w", target, err)
		}
	}
	return conn, nil
}

func defaultDialer(timeout time.Duration) Dialer {
	return &net.Dialer{Timeout: timeout}
}

// addrPortOf extracts the IP and port of a connection endpoint.
func addrPortOf(addr net.Addr) (netip.AddrPort, bool) {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		ap := tcp.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), true
	}
	if addr == nil {
		return netip.AddrPort{}, false
	}
	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return netip.AddrPort{}, false
	}
	return ap, true
}
