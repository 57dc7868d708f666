//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

// epollPoller is the Linux backend, adapted from skynet's socket_epoll.h:
// level-triggered, EPOLLIN always armed, EPOLLOUT toggled via EPOLL_CTL_MOD.
type epollPoller struct {
	fd       int
	wakeR    int
	wakeW    int
	eventBuf []unix.EpollEvent
}

func newPoller() (poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	r, w, err := pipe2NonBlock()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	p := &epollPoller{fd: fd, wakeR: r, wakeW: w, eventBuf: make([]unix.EpollEvent, 256)}
	if err := unix.EpollCtl(fd, unix.EPOLL_CTL_ADD, r, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(r)}); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func (p *epollPoller) add(fd int, wantWrite bool) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if wantWrite {
		ev.Events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) modify(fd int, wantWrite bool) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if wantWrite {
		ev.Events |= unix.EPOLLOUT
	}
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *epollPoller) remove(fd int) error {
	err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *epollPoller) wait(dst []pollEvent, timeoutMs int) ([]pollEvent, error) {
	n, err := unix.EpollWait(p.fd, p.eventBuf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		fd := int(ev.Fd)
		if fd == p.wakeR {
			drainWake(p.wakeR)
			continue
		}
		dst = append(dst, pollEvent{
			fd:       fd,
			readable: ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			writable: ev.Events&unix.EPOLLOUT != 0,
			errored:  ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}
	return dst, nil
}

func (p *epollPoller) wake() error {
	_, err := unix.Write(p.wakeW, []byte{1})
	return err
}

func (p *epollPoller) close() error {
	unix.Close(p.wakeR)
	unix.Close(p.wakeW)
	return unix.Close(p.fd)
}
