//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import "golang.org/x/sys/unix"

func unixClose(fd int) {
	if fd >= 0 {
		unix.Close(fd)
	}
}

// unixRead returns wouldBlock=true when the kernel has no data yet; the
// caller must not treat that as peer close.
func unixRead(fd int, buf []byte) (n int, wouldBlock bool, err error) {
	n, err = unix.Read(fd, buf)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, true, nil
	}
	return n, false, err
}

func unixWrite(fd int, buf []byte) (int, error) {
	n, err := unix.Write(fd, buf)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return n, nil
	}
	return n, err
}

func unixSendto(fd int, buf []byte, sa unix.Sockaddr) (int, error) {
	err := unix.Sendto(fd, buf, 0, sa)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, nil
	}
	return len(buf), err
}

func unixRecvfrom(fd int, buf []byte) (n int, peer PackedAddr, err error) {
	n, from, err := unix.Recvfrom(fd, buf, 0)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, PackedAddr{}, errWouldBlock
	}
	if err != nil {
		return 0, PackedAddr{}, err
	}
	switch a := from.(type) {
	case *unix.SockaddrInet4:
		peer = PackedAddr{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	case *unix.SockaddrInet6:
		peer = PackedAddr{IP: append([]byte(nil), a.Addr[:]...), Port: a.Port}
	}
	return n, peer, nil
}

var errWouldBlock = unix.EAGAIN
