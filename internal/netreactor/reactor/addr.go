package reactor

import (
	"fmt"
	"net"
)

// PackedAddr is the reactor's wire-independent representation of a UDP
// peer address, used by the 'A' (sendto) and 'C' (set default peer)
// commands and attached to inbound UDP events.
type PackedAddr struct {
	IP   net.IP
	Port int
}

func (p PackedAddr) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: p.IP, Port: p.Port}
}

func (p PackedAddr) String() string {
	if p.IP == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

func PackUDPAddr(a *net.UDPAddr) PackedAddr {
	if a == nil {
		return PackedAddr{}
	}
	return PackedAddr{IP: a.IP, Port: a.Port}
}
