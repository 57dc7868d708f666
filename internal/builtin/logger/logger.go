// Package logger implements the builtin "logger" service: the error sink
// and any other subsystem send it plain text messages, and it has nowhere
// else to forward them, so its Handle always returns true
// (module.ForwarderFunc's "forwarder callback variant") rather than asking
// the core to free the payload after every call.
package logger

import (
	"log/slog"

	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/module"
)

// Tailer is the subset of debugapi.Tailer this service publishes lines to,
// kept as an interface so this package never imports debugapi.
type Tailer interface {
	Publish(line string)
}

// Module is the compiled-in "logger" service type, registered under the
// configured `logservice` name (default "logger").
type Module struct {
	out  *slog.Logger
	tail Tailer
}

// New builds the logger module. tail may be nil when the debug/inspection
// surface is not wired.
func New(out *slog.Logger, tail Tailer) *Module {
	return &Module{out: out, tail: tail}
}

type instance struct {
	m *Module
}

func (m *Module) Create() module.Instance { return &instance{m: m} }

func (m *Module) Init(_ module.Instance, _ string) error { return nil }

func (m *Module) Release(_ module.Instance) {}

func (m *Module) Signal(_ module.Instance, _ module.Signal) {}

// Handle writes the message payload to slog and, if wired, to the debug
// tail stream. It is built on module.ForwarderFunc since a log line is
// never resent anywhere else in the runtime; there is nothing to free
// beyond what logging itself consumes.
func (m *Module) Handle(inst module.Instance, msg mailbox.Message) bool {
	fwd := module.ForwarderFunc(func(module.Instance, mailbox.Message) {
		line := string(msg.Payload)
		m.out.Info(line, slog.Any("source", msg.Source))
		if m.tail != nil {
			m.tail.Publish(line)
		}
	})
	return fwd.Handle(inst, msg)
}
