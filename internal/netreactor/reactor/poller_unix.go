//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import "golang.org/x/sys/unix"

// pipe2NonBlock creates the wake pipe shared by both poller backends: a
// self-pipe whose read end sits in the wait set, so a byte written by the
// backend's wake method makes a blocked wait call return. Submit does not
// write to it; a command it queues is picked up by the next Poll, whose
// wait lasts at most 10ms.
func pipe2NonBlock() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

func drainWake(fd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
