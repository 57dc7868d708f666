//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"net"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// dialNonBlocking starts a non-blocking TCP connect, returning the raw fd
// immediately; the caller watches it for writable-or-errored and reads
// SO_ERROR to learn whether the connect succeeded.
func dialNonBlocking(hostport string) (int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return -1, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return -1, err
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return -1, err
	}
	ip4 := ips[0].To4()
	domain := unix.AF_INET
	if ip4 == nil {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	var sa unix.Sockaddr
	if ip4 != nil {
		var b [4]byte
		copy(b[:], ip4)
		sa = &unix.SockaddrInet4{Port: port, Addr: b}
	} else {
		var b [16]byte
		copy(b[:], ips[0].To16())
		sa = &unix.SockaddrInet6{Port: port, Addr: b}
	}
	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// listenFD opens a non-blocking TCP listener and returns its fd.
func listenFD(hostport string) (int, error) {
	host, portStr, found := strings.Cut(hostport, ":")
	if !found {
		host, portStr = "", hostport
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	var addr [4]byte
	if host != "" {
		ip := net.ParseIP(host).To4()
		if ip != nil {
			copy(addr[:], ip)
		}
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, 1024); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func udpFD(hostport string) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return -1, err
	}
	if hostport != "" {
		host, portStr, err := net.SplitHostPort(hostport)
		if err != nil {
			unix.Close(fd)
			return -1, err
		}
		port, _ := strconv.Atoi(portStr)
		var addr [4]byte
		if ip := net.ParseIP(host).To4(); ip != nil {
			copy(addr[:], ip)
		}
		if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
			unix.Close(fd)
			return -1, err
		}
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func acceptNonBlocking(listenFD int) (fd int, peer net.Addr, err error) {
	nfd, sa, err := unix.Accept(listenFD)
	if err != nil {
		return -1, nil, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, nil, err
	}
	return nfd, sockaddrToNetAddr(sa), nil
}

func sockaddrToNetAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

func soError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func setTCPNoDelay(fd int, on int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, on)
}

func sockaddrFromPacked(p PackedAddr) unix.Sockaddr {
	ip4 := p.IP.To4()
	if ip4 != nil {
		var b [4]byte
		copy(b[:], ip4)
		return &unix.SockaddrInet4{Port: p.Port, Addr: b}
	}
	var b [16]byte
	copy(b[:], p.IP.To16())
	return &unix.SockaddrInet6{Port: p.Port, Addr: b}
}
