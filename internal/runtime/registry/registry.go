// Package registry implements the service handle table and name table.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

// ErrFull is returned when the handle table cannot grow further: slot
// growth is capped at 2^30.
var ErrFull = errors.New("registry: handle table full")

// ErrNameTaken is returned by Name when the requested name already exists.
var ErrNameTaken = errors.New("registry: name already registered")

// Handled is the minimal capability the registry needs from a registered
// entry: its own address and a refcount it can bump on Grab. Concrete
// service contexts (internal/runtime/service) satisfy this without the
// registry importing that package.
type Handled interface {
	Addr() handle.Handle
	IncRef() int32
}

const maxSlots = 1 << 30

type nameRow struct {
	name string
	h    handle.Handle
}

// Registry is the handle table + sorted name table. Slot size is always a
// power of two so `handle mod slotSize` is a valid hash.
type Registry struct {
	mu       sync.RWMutex
	slots    []Handled
	harbor   uint8
	lastFree uint32 // search hint: lowest-index free slot starting from the last allocation point

	nameMu sync.RWMutex
	names  []nameRow
}

// New creates a registry for the given local harbor id with an initial
// slot table of the given size (rounded up to a power of two).
func New(harbor uint8, initialSlots int) *Registry {
	n := 1
	for n < initialSlots {
		n <<= 1
	}
	if n < 64 {
		n = 64
	}
	return &Registry{
		slots:  make([]Handled, n),
		harbor: harbor,
	}
}

// Register reserves the lowest-index free slot starting from the last
// allocation point, growing (and rehashing) the table if necessary, and
// returns the freshly minted handle. entry.Addr() is expected to already
// carry that handle once the caller has finished constructing it; Register
// itself only decides the numeric slot.
func (r *Registry) Register(newEntry func(h handle.Handle) Handled) (handle.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.findFreeLocked()
	if err != nil {
		return 0, err
	}

	h := handle.New(r.harbor, idx)
	entry := newEntry(h)
	r.slots[int(idx)%len(r.slots)] = entry
	r.lastFree = idx + 1
	return h, nil
}

func (r *Registry) findFreeLocked() (uint32, error) {
	n := uint32(len(r.slots))
	start := r.lastFree % n
	for i := uint32(0); i < n; i++ {
		idx := (start + i) % n
		if r.slots[idx] == nil {
			return idx, nil
		}
	}
	// Full pass found nothing free: grow.
	if n >= maxSlots {
		return 0, ErrFull
	}
	if err := r.growLocked(); err != nil {
		return 0, err
	}
	return r.findFreeLocked()
}

func (r *Registry) growLocked() error {
	newN := len(r.slots) * 2
	if newN > maxSlots {
		return ErrFull
	}
	newSlots := make([]Handled, newN)
	for _, e := range r.slots {
		if e == nil {
			continue
		}
		newSlots[int(e.Addr().LocalID())%newN] = e
	}
	r.slots = newSlots
	return nil
}

// Retire clears the slot if the live entry there still has exactly h, and
// removes every name row mapped to h. Idempotent: retiring an address that
// is already clear (or held by a different generation) is a no-op.
func (r *Registry) Retire(h handle.Handle) bool {
	r.mu.Lock()
	idx := int(h.LocalID()) % len(r.slots)
	cleared := false
	if e := r.slots[idx]; e != nil && e.Addr() == h {
		r.slots[idx] = nil
		cleared = true
	}
	r.mu.Unlock()

	if cleared {
		r.removeNamesFor(h)
	}
	return cleared
}

// RetireAll loops until a full pass finds no live entries; used during
// shutdown.
func (r *Registry) RetireAll(onRetire func(handle.Handle)) {
	for {
		r.mu.Lock()
		var victim Handled
		for _, e := range r.slots {
			if e != nil {
				victim = e
				break
			}
		}
		r.mu.Unlock()
		if victim == nil {
			return
		}
		h := victim.Addr()
		if r.Retire(h) && onRetire != nil {
			onRetire(h)
		}
	}
}

// Grab atomically increments the entry's refcount and returns it. ok is
// false if the slot is empty or holds a different handle.
func (r *Registry) Grab(h handle.Handle) (entry Handled, ok bool) {
	r.mu.RLock()
	idx := int(h.LocalID()) % len(r.slots)
	e := r.slots[idx]
	r.mu.RUnlock()

	if e == nil || e.Addr() != h {
		return nil, false
	}
	e.IncRef()
	return e, true
}

// Name inserts a sorted (name, handle) row. Fails with ErrNameTaken if the
// name already exists.
func (r *Registry) Name(h handle.Handle, name string) error {
	r.nameMu.Lock()
	defer r.nameMu.Unlock()

	i := sort.Search(len(r.names), func(i int) bool { return r.names[i].name >= name })
	if i < len(r.names) && r.names[i].name == name {
		return ErrNameTaken
	}
	r.names = append(r.names, nameRow{})
	copy(r.names[i+1:], r.names[i:])
	r.names[i] = nameRow{name: name, h: h}
	return nil
}

// Find resolves a name via binary search.
func (r *Registry) Find(name string) (handle.Handle, bool) {
	r.nameMu.RLock()
	defer r.nameMu.RUnlock()

	i := sort.Search(len(r.names), func(i int) bool { return r.names[i].name >= name })
	if i < len(r.names) && r.names[i].name == name {
		return r.names[i].h, true
	}
	return 0, false
}

func (r *Registry) removeNamesFor(h handle.Handle) {
	r.nameMu.Lock()
	defer r.nameMu.Unlock()

	kept := r.names[:0]
	for _, row := range r.names {
		if row.h != h {
			kept = append(kept, row)
		}
	}
	r.names = kept
}

// Harbor returns the local node id this registry mints handles for.
func (r *Registry) Harbor() uint8 { return r.harbor }

// Snapshot returns every live entry, for diagnostics (the debug/inspection
// surface). It never blocks the registry for longer than a table scan.
func (r *Registry) Snapshot() []Handled {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handled, 0, len(r.slots)/4+1)
	for _, e := range r.slots {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// NameOf returns the registered name for h, if any (reverse of Find).
func (r *Registry) NameOf(h handle.Handle) (string, bool) {
	r.nameMu.RLock()
	defer r.nameMu.RUnlock()
	for _, row := range r.names {
		if row.h == h {
			return row.name, true
		}
	}
	return "", false
}
