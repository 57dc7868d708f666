// Package handle defines the 32-bit service address used throughout the
// runtime.
package handle

import "strconv"

// Handle is a service address: the upper 8 bits identify the harbor (node),
// the lower 24 bits identify the service within that node. Zero is reserved
// and never assigned to a live service.
type Handle uint32

const (
	// Local is the sentinel meaning "the caller's own handle" in send calls.
	Local Handle = 0

	harborShift = 24
	localMask   = 0x00FFFFFF
)

// Harbor returns the node id encoded in the upper 8 bits.
func (h Handle) Harbor() uint8 {
	return uint8(h >> harborShift)
}

// LocalID returns the 24-bit local service id.
func (h Handle) LocalID() uint32 {
	return uint32(h) & localMask
}

// IsZero reports whether h is the reserved null address.
func (h Handle) IsZero() bool {
	return h == 0
}

// New packs a harbor id and a local id into a single handle.
func New(harbor uint8, local uint32) Handle {
	return Handle(uint32(harbor)<<harborShift | (local & localMask))
}

// IsRemote reports whether h belongs to a different harbor than localHarbor.
func (h Handle) IsRemote(localHarbor uint8) bool {
	return h.Harbor() != localHarbor
}

// String renders h in the ":HEX" textual address form send_by_name accepts.
func (h Handle) String() string {
	return ":" + strconv.FormatUint(uint64(h), 16)
}
