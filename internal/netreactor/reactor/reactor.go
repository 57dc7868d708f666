// Package reactor implements the network reactor: a single goroutine
// owning a fixed socket table, driven by a control channel that stands in
// for a byte-oriented command pipe, and a readiness loop backed by epoll
// or kqueue.
package reactor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

var tracer = otel.Tracer("actorhub/netreactor")

// Sink receives reactor-output events. A typical implementation
// translates each Event into a mailbox push to Event.Owner.
type Sink interface {
	Deliver(Event)
}

const overloadThreshold = 1 << 20 // 1 MiB of queued writes triggers a warning event

// Reactor owns the socket table and the readiness loop. All Socket
// mutation happens inside run, which must execute on a single goroutine
// (Poll is meant to be called from exactly one caller, the scheduler's
// network thread).
type Reactor struct {
	mu     sync.Mutex // guards slots/nextID/fdIdx only; run() is single-threaded otherwise
	slots  [MaxSockets]*Socket
	nextID uint32
	fdIdx  map[int]*Socket

	cmdCh chan Command
	p     poller
	sink  Sink
	log   zerolog.Logger

	scratch []pollEvent
	exiting bool
}

// New builds the reactor. Logging on this type's hot path uses zerolog
// instead of the rest of the tree's slog, since every readiness event
// would otherwise box its args through slog's interface-based Attr API;
// zerolog's chained, zero-allocation-on-the-happy-path builder avoids that
// cost on a loop this tight. A deliberate dual-logger choice, not an
// accidental swap.
func New(sink Sink, logger zerolog.Logger) (*Reactor, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	return &Reactor{
		cmdCh:   make(chan Command, 1024),
		p:       p,
		sink:    sink,
		log:     logger.With().Str("component", "reactor").Logger(),
		scratch: make([]pollEvent, 0, 256),
		fdIdx:   make(map[int]*Socket),
	}, nil
}

// Submit enqueues a command for the reactor goroutine to process on its
// next Poll iteration. Safe to call from any goroutine.
func (r *Reactor) Submit(cmd Command) {
	r.cmdCh <- cmd
}

// RequestExit satisfies scheduler.NetworkPump: it asks the reactor to
// unblock its next Poll and report exit=true.
func (r *Reactor) RequestExit() {
	r.cmdCh <- Command{Type: CmdExit}
}

// Poll drains pending commands, waits briefly for readiness, and processes
// whatever is ready. It returns hadActivity=true if any command or
// readiness event was processed, and exit=true once an 'X' command has
// been seen.
//
// ctx only roots the trace span opened around a non-empty readiness batch;
// Poll still returns promptly on its own 10ms budget regardless of ctx
// cancellation; the caller (scheduler.networkLoop) is the one that stops
// calling Poll once its context is done.
func (r *Reactor) Poll(ctx context.Context) (hadActivity bool, exit bool) {
	if r.exiting {
		return false, true
	}

	drained := r.drainCommands()
	if r.exiting {
		return drained, true
	}

	timeoutMs := 10
	if drained {
		timeoutMs = 0
	}
	var err error
	r.scratch, err = r.p.wait(r.scratch[:0], timeoutMs)
	if err != nil {
		r.log.Warn().Err(err).Msg("reactor poll error")
		return drained, false
	}
	if len(r.scratch) > 0 {
		_, span := tracer.Start(ctx, "reactor.poll_batch", trace.WithAttributes())
		for _, ev := range r.scratch {
			r.handleReadiness(ev)
			hadActivity = true
		}
		span.End()
	}
	return drained || hadActivity, false
}

func (r *Reactor) drainCommands() (any bool) {
	for {
		select {
		case cmd := <-r.cmdCh:
			any = true
			r.handleCommand(cmd)
			if r.exiting {
				return true
			}
		default:
			return any
		}
	}
}

func (r *Reactor) allocID() (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < MaxSockets; i++ {
		id := r.nextID
		r.nextID++
		slot := id % MaxSockets
		if r.slots[slot] == nil {
			return id, true
		}
	}
	return 0, false
}

func (r *Reactor) install(id uint32, s *Socket) {
	r.mu.Lock()
	r.slots[id%MaxSockets] = s
	if s.FD >= 0 {
		r.fdIdx[s.FD] = s
	}
	r.mu.Unlock()
}

func (r *Reactor) lookup(id uint32) *Socket {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[id%MaxSockets]
	if s != nil && s.ID == id {
		return s
	}
	return nil
}

func (r *Reactor) forget(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[id%MaxSockets]
	if s != nil && s.ID == id {
		r.slots[id%MaxSockets] = nil
		delete(r.fdIdx, s.FD)
	}
}

func (r *Reactor) reply(cmd Command, id uint32, err error) {
	if cmd.Result != nil {
		cmd.Result <- CmdResult{ID: id, Err: err}
	}
}

func (r *Reactor) handleCommand(cmd Command) {
	switch cmd.Type {
	case CmdExit:
		r.exiting = true
		for i := range r.slots {
			if s := r.slots[i]; s != nil {
				unixClose(s.FD)
			}
		}
	case CmdConnect:
		r.doConnect(cmd)
	case CmdAttachFD:
		r.doListen(cmd)
	case CmdAttachBind:
		r.doBind(cmd)
	case CmdUDPCreate:
		r.doUDPCreate(cmd)
	case CmdStart:
		r.doStart(cmd)
	case CmdClose:
		r.doClose(cmd)
	case CmdSendHigh:
		r.doSend(cmd, true)
	case CmdSendLow:
		r.doSend(cmd, false)
	case CmdUDPSendTo:
		r.doUDPSendTo(cmd)
	case CmdUDPSetPeer:
		r.doSetPeer(cmd)
	case CmdSetOpt:
		r.doSetOpt(cmd)
	}
}

func (r *Reactor) doConnect(cmd Command) {
	fd, err := dialNonBlocking(cmd.Addr)
	if err != nil {
		r.reply(cmd, 0, err)
		return
	}
	id, ok := r.allocID()
	if !ok {
		unixClose(fd)
		r.reply(cmd, 0, errors.New("reactor: socket table full"))
		return
	}
	s := newSocket(id, fd, ProtoTCP, cmd.Owner)
	s.State = StateConnecting
	r.install(id, s)
	if err := r.p.add(fd, true); err != nil {
		r.forget(id)
		unixClose(fd)
		r.reply(cmd, 0, err)
		return
	}
	r.reply(cmd, id, nil)
}

func (r *Reactor) doListen(cmd Command) {
	fd, err := listenFD(cmd.Addr)
	if err != nil {
		r.reply(cmd, 0, err)
		return
	}
	id, ok := r.allocID()
	if !ok {
		unixClose(fd)
		r.reply(cmd, 0, errors.New("reactor: socket table full"))
		return
	}
	s := newSocket(id, fd, ProtoTCP, cmd.Owner)
	s.State = StateListenPaused
	r.install(id, s)
	r.reply(cmd, id, nil)
}

func (r *Reactor) doBind(cmd Command) {
	id, ok := r.allocID()
	if !ok {
		r.reply(cmd, 0, errors.New("reactor: socket table full"))
		return
	}
	s := newSocket(id, -1, ProtoTCP, cmd.Owner)
	s.State = StateBind
	r.install(id, s)
	r.reply(cmd, id, nil)
}

func (r *Reactor) doUDPCreate(cmd Command) {
	fd, err := udpFD(cmd.Addr)
	if err != nil {
		r.reply(cmd, 0, err)
		return
	}
	id, ok := r.allocID()
	if !ok {
		unixClose(fd)
		r.reply(cmd, 0, errors.New("reactor: socket table full"))
		return
	}
	s := newSocket(id, fd, ProtoUDP4, cmd.Owner)
	s.State = StateBind
	r.install(id, s)
	if err := r.p.add(fd, false); err != nil {
		r.forget(id)
		unixClose(fd)
		r.reply(cmd, 0, err)
		return
	}
	r.reply(cmd, id, nil)
}

func (r *Reactor) doStart(cmd Command) {
	s := r.lookup(cmd.ID)
	if s == nil {
		return
	}
	switch s.State {
	case StateListenPaused:
		if err := r.p.add(s.FD, false); err != nil {
			r.log.Warn().Err(err).Msg("reactor start failed")
			return
		}
		s.State = StateListen
	case StateAcceptPaused:
		if err := r.p.add(s.FD, false); err != nil {
			r.log.Warn().Err(err).Msg("reactor start failed")
			return
		}
		s.State = StateConnected
	}
}

func (r *Reactor) doClose(cmd Command) {
	s := r.lookup(cmd.ID)
	if s == nil {
		return
	}
	if cmd.Force {
		r.forceClose(s)
		return
	}
	if s.high.empty() && s.low.empty() {
		r.forceClose(s)
		return
	}
	s.State = StateHalfClose
	s.closing = true
}

func (r *Reactor) forceClose(s *Socket) {
	r.p.remove(s.FD)
	unixClose(s.FD)
	r.forget(s.ID)
	s.State = StateInvalid
	r.sink.Deliver(Event{Type: EvClose, ID: s.ID, Owner: s.Owner, TraceID: s.TraceID})
}

func (r *Reactor) doSend(cmd Command, highPriority bool) {
	s := r.lookup(cmd.ID)
	if s == nil || s.closing {
		return
	}
	r.enqueueWrite(s, cmd.Payload, highPriority)
}

// enqueueWrite tries a direct write when both queues are empty and the
// socket is connected; otherwise it queues at the requested priority,
// folding partial direct writes into high so a frame is never interleaved.
func (r *Reactor) enqueueWrite(s *Socket, payload []byte, highPriority bool) {
	if s.high.empty() && s.low.empty() && s.State == StateConnected {
		n, err := unixWrite(s.FD, payload)
		if err == nil && n == len(payload) {
			return
		}
		if n > 0 {
			s.high.push(payload[n:])
		} else {
			s.high.push(payload)
		}
		r.p.modify(s.FD, true)
		r.checkOverload(s)
		return
	}
	if highPriority {
		s.high.push(payload)
	} else {
		s.low.push(payload)
	}
	r.p.modify(s.FD, true)
	r.checkOverload(s)
}

func (r *Reactor) checkOverload(s *Socket) {
	total := s.high.pending() + s.low.pending()
	if total > overloadThreshold {
		r.sink.Deliver(Event{Type: EvWarning, ID: s.ID, Owner: s.Owner, UserData: uint32(total / 1024), TraceID: s.TraceID})
	}
}

func (r *Reactor) doUDPSendTo(cmd Command) {
	s := r.lookup(cmd.ID)
	if s == nil {
		return
	}
	_, err := unixSendto(s.FD, cmd.Payload, sockaddrFromPacked(cmd.Peer))
	if err != nil {
		r.log.Warn().Err(err).Msg("udp sendto failed")
	}
}

func (r *Reactor) doSetPeer(cmd Command) {
	s := r.lookup(cmd.ID)
	if s == nil {
		return
	}
	peer := cmd.Peer
	s.udpPeer = &peer
}

func (r *Reactor) doSetOpt(cmd Command) {
	s := r.lookup(cmd.ID)
	if s == nil || s.FD < 0 {
		return
	}
	switch cmd.Opt {
	case OptTCPNoDelay:
		setTCPNoDelay(s.FD, cmd.OptValue)
	}
}

func (r *Reactor) handleReadiness(ev pollEvent) {
	s := r.findByFD(ev.fd)
	if s == nil {
		return
	}
	switch s.State {
	case StateConnecting:
		if ev.writable || ev.errored {
			if err := soError(s.FD); err != nil {
				r.forceClose(s)
				r.sink.Deliver(Event{Type: EvError, ID: s.ID, Owner: s.Owner, Err: err, TraceID: s.TraceID})
				return
			}
			s.State = StateConnected
			r.p.modify(s.FD, false)
			r.sink.Deliver(Event{Type: EvConnect, ID: s.ID, Owner: s.Owner, TraceID: s.TraceID})
		}
	case StateListen:
		if ev.readable {
			r.acceptOne(s)
		}
	case StateConnected, StateBind:
		if ev.readable {
			r.readSocket(s)
		}
		if s.State != StateInvalid && ev.writable {
			r.drainWrites(s)
		}
	case StateHalfClose:
		if ev.writable {
			r.drainWrites(s)
		}
	}
}

func (r *Reactor) findByFD(fd int) *Socket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fdIdx[fd]
}

func (r *Reactor) acceptOne(listener *Socket) {
	fd, _, err := acceptNonBlocking(listener.FD)
	if err != nil {
		return
	}
	id, ok := r.allocID()
	if !ok {
		unixClose(fd)
		return
	}
	s := newSocket(id, fd, ProtoTCP, listener.Owner)
	s.State = StateAcceptPaused
	r.install(id, s)
	r.sink.Deliver(Event{Type: EvAccept, ID: listener.ID, Owner: listener.Owner, UserData: id, TraceID: s.TraceID})
}

func (r *Reactor) readSocket(s *Socket) {
	if s.Protocol != ProtoTCP {
		r.readUDP(s)
		return
	}
	buf := make([]byte, s.readHint)
	n, wouldBlock, err := unixRead(s.FD, buf)
	if wouldBlock {
		return
	}
	if err != nil || n == 0 {
		r.forceClose(s)
		return
	}
	if n == len(buf) {
		s.growReadHint()
	} else {
		s.shrinkReadHint(n)
	}
	r.sink.Deliver(Event{Type: EvData, ID: s.ID, Owner: s.Owner, Data: buf[:n], TraceID: s.TraceID})
}

func (r *Reactor) readUDP(s *Socket) {
	buf := make([]byte, 65535)
	n, peer, err := unixRecvfrom(s.FD, buf)
	if err == errWouldBlock || err != nil {
		return
	}
	r.sink.Deliver(Event{Type: EvUDP, ID: s.ID, Owner: s.Owner, Data: buf[:n], Peer: peer, TraceID: s.TraceID})
}

// drainWrites runs the per-writable-event drain algorithm: empty high
// before touching low, and fold a partially-written low frame back into
// high so later high-priority enqueues cannot overtake it.
func (r *Reactor) drainWrites(s *Socket) {
	drainQueue(s.FD, s.high)
	if s.high.empty() {
		drainQueue(s.FD, s.low)
		if !s.low.empty() {
			// low's head was partially written: move it to high so later
			// high-priority enqueues don't overtake the half-sent frame.
			s.high.push(append([]byte(nil), s.low.front()...))
			s.low.bufs = nil
			s.low.off = 0
		}
	}
	if s.high.empty() && s.low.empty() {
		r.p.modify(s.FD, false)
		if s.State == StateHalfClose {
			r.forceClose(s)
		}
	}
}

func drainQueue(fd int, q *writeQueue) {
	for !q.empty() {
		buf := q.front()
		n, err := unixWrite(fd, buf)
		if n > 0 {
			q.advance(n)
		}
		if err != nil || n < len(buf) {
			return
		}
	}
}

