package reactor

// pollEvent is one readiness notification from the OS poller.
type pollEvent struct {
	fd       int
	readable bool
	writable bool
	errored  bool
}

// poller abstracts epoll (Linux) and kqueue (Darwin/BSD) behind the same
// edge-neutral, level-triggered interface, mirroring the watcher backend
// split used for gaio's net poller.
type poller interface {
	// add registers fd for read interest, and for write interest too when
	// wantWrite is true.
	add(fd int, wantWrite bool) error
	// modify updates the write-interest bit for an already-registered fd.
	modify(fd int, wantWrite bool) error
	// remove unregisters fd. Safe to call on an fd already removed.
	remove(fd int) error
	// wait blocks up to timeoutMs (negative = forever) and appends ready
	// events to dst, returning the extended slice.
	wait(dst []pollEvent, timeoutMs int) ([]pollEvent, error)
	// wake unblocks a concurrent wait call.
	wake() error
	close() error
}
