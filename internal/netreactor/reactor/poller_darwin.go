//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"golang.org/x/sys/unix"
)

// kqueuePoller is the BSD/Darwin backend, adapted from skynet's
// socket_kqueue.h: separate EVFILT_READ/EVFILT_WRITE registrations, write
// interest toggled by adding/deleting the EVFILT_WRITE entry.
type kqueuePoller struct {
	fd       int
	wakeR    int
	wakeW    int
	eventBuf []unix.Kevent_t
}

func newPoller() (poller, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	r, w, err := pipe2NonBlock()
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	p := &kqueuePoller{fd: fd, wakeR: r, wakeW: w, eventBuf: make([]unix.Kevent_t, 256)}
	ev := unix.Kevent_t{Ident: uint64(r), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD}
	if _, err := unix.Kevent(fd, []unix.Kevent_t{ev}, nil, nil); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func (p *kqueuePoller) add(fd int, wantWrite bool) error {
	changes := []unix.Kevent_t{{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD}}
	if wantWrite {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD})
	}
	_, err := unix.Kevent(p.fd, changes, nil, nil)
	return err
}

func (p *kqueuePoller) modify(fd int, wantWrite bool) error {
	flag := uint16(unix.EV_DELETE)
	if wantWrite {
		flag = unix.EV_ADD
	}
	change := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flag}
	_, err := unix.Kevent(p.fd, []unix.Kevent_t{change}, nil, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (p *kqueuePoller) remove(fd int) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	unix.Kevent(p.fd, changes, nil, nil)
	return nil
}

func (p *kqueuePoller) wait(dst []pollEvent, timeoutMs int) ([]pollEvent, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.fd, nil, p.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	byFD := make(map[int]*pollEvent, n)
	for i := 0; i < n; i++ {
		ke := p.eventBuf[i]
		fd := int(ke.Ident)
		if fd == p.wakeR {
			drainWake(p.wakeR)
			continue
		}
		e, ok := byFD[fd]
		if !ok {
			dst = append(dst, pollEvent{fd: fd})
			e = &dst[len(dst)-1]
			byFD[fd] = e
		}
		switch ke.Filter {
		case unix.EVFILT_READ:
			e.readable = true
		case unix.EVFILT_WRITE:
			e.writable = true
		}
		if ke.Flags&unix.EV_EOF != 0 || ke.Flags&unix.EV_ERROR != 0 {
			e.errored = true
			e.readable = true
		}
	}
	return dst, nil
}

func (p *kqueuePoller) wake() error {
	_, err := unix.Write(p.wakeW, []byte{1})
	return err
}

func (p *kqueuePoller) close() error {
	unix.Close(p.wakeR)
	unix.Close(p.wakeW)
	return unix.Close(p.fd)
}
