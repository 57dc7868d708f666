package reactor

import (
	"github.com/google/uuid"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

// EventType identifies the kind of a reactor-output tuple: (type, id, ud,
// data).
type EventType int

const (
	EvData EventType = iota
	EvConnect
	EvClose
	EvAccept
	EvError
	EvUDP
	EvWarning
	EvExit
)

// Event is one reactor-output tuple. Interpretation of UserData/Data/Peer
// depends on Type:
//   - EvAccept: UserData is the newly reserved connection id, ID is the
//     listener's id.
//   - EvWarning: UserData carries the queued size in KiB.
//   - EvData/EvUDP: Data is the payload (UDP events also set Peer).
type Event struct {
	Type     EventType
	ID       uint32
	Owner    handle.Handle
	UserData uint32
	Data     []byte
	Peer     PackedAddr
	Err      error
	TraceID  uuid.UUID
}
