package reactor

import (
	"github.com/google/uuid"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

// State is a socket's lifecycle stage in the socket table's state machine.
type State int

const (
	StateInvalid State = iota
	StateReserve
	StateListenPaused
	StateListen
	StateAcceptPaused
	StateConnecting
	StateConnected
	StateBind
	StateHalfClose
)

// Protocol identifies the socket's transport.
type Protocol int

const (
	ProtoTCP Protocol = iota
	ProtoUDP4
	ProtoUDP6
)

const MaxSockets = 65536

// Socket is one entry of the fixed socket table.
type Socket struct {
	ID       uint32
	FD       int
	State    State
	Owner    handle.Handle
	Protocol Protocol

	// TraceID correlates every event this socket emits across diagnostics
	// and the debug tail stream.
	TraceID uuid.UUID

	high *writeQueue
	low  *writeQueue

	writeBytes int

	// TCP read-size hint: grows to 2x after a full-fill read, halves after
	// a read <= half when above readHintMin.
	readHint int

	// UDP default peer, set via the 'C' command.
	udpPeer *PackedAddr

	// closing is true once a graceful close (HALFCLOSE) has been
	// requested; new enqueues are rejected.
	closing bool
}

const (
	readHintMin     = 64
	readHintDefault = 4096
)

func newSocket(id uint32, fd int, proto Protocol, owner handle.Handle) *Socket {
	return &Socket{
		ID:       id,
		FD:       fd,
		Protocol: proto,
		Owner:    owner,
		TraceID:  uuid.New(),
		high:     newWriteQueue(),
		low:      newWriteQueue(),
		readHint: readHintDefault,
	}
}

func (s *Socket) growReadHint() {
	s.readHint *= 2
}

func (s *Socket) shrinkReadHint(n int) {
	if n <= s.readHint/2 && s.readHint > readHintMin {
		s.readHint /= 2
	}
}
