// Package module defines the capability set a compiled-in (or dynamically
// resolved) service type exposes to the core, replacing a native
// dlopen-style loader with a Go interface plus a name-keyed registry.
package module

import (
	"sync"

	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

// Signal is an out-of-band notification a service's owner can deliver
// (e.g. a debug "reload" ping); it is distinct from ordinary mailbox
// messages and never touches the mailbox.
type Signal int

const (
	SignalNone Signal = iota
	SignalReload
	SignalExit
)

// Instance is the opaque per-service object a Module creates. The core
// never inspects it.
type Instance any

// Module is the four-symbol capability set used in place of dynamic
// symbol resolution: Create, Init, Release, Signal.
type Module interface {
	// Create allocates a fresh, zero-initialized instance. It must not
	// perform I/O or fail in a way the caller cannot recover from; real
	// setup happens in Init.
	Create() Instance

	// Init runs the startup string against instance, wiring up whatever
	// the service needs (subscriptions, timers, peers). A non-nil error
	// aborts registration.
	Init(instance Instance, startArgs string) error

	// Release tears the instance down. Called once refcount reaches 0.
	Release(instance Instance)

	// Signal delivers an out-of-band notification.
	Signal(instance Instance, sig Signal)

	// Handle runs one message through the service's callback. The return
	// value is the forward indicator: true means the callback took
	// ownership of msg.Payload (e.g. re-sent it elsewhere), false tells
	// the core the payload is no longer needed.
	Handle(instance Instance, msg mailbox.Message) (forward bool)
}

// ForwarderFunc adapts a plain handler function that always forwards
// (never asks the core to free the payload) into the Handle signature.
// Modules that only ever resend or hand off the payload (never free it
// themselves) can embed a ForwarderFunc to get Handle for free; see
// internal/builtin/logger for a concrete use.
type ForwarderFunc func(instance Instance, msg mailbox.Message)

// Handle satisfies Module's Handle method, always forwarding.
func (f ForwarderFunc) Handle(instance Instance, msg mailbox.Message) bool {
	f(instance, msg)
	return true
}

// Registry resolves module types by name, the Go-native analogue of
// discovering and instantiating service types via a search path of
// shared objects.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register makes a compiled-in module type available under name. Intended
// to be called from fx.Invoke at process start (see cmd/fx.go), the
// same fx.Provide/fx.Annotate wiring style used elsewhere in this
// codebase but for runtime-resolved lookup rather than constructor
// injection.
func (r *Registry) Register(name string, m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[name] = m
}

// Lookup resolves a module type by name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}
