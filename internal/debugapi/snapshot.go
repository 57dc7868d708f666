// Package debugapi exposes the runtime to operators: a read-only HTTP (chi)
// view of the registry listing, per-service mailbox depth, and stall
// status, and a gRPC server carrying the health service and a control
// plane whose Register and Retire calls start and stop services.
package debugapi

import (
	"github.com/relaygrid/actorhub/internal/runtime/registry"
	"github.com/relaygrid/actorhub/internal/runtime/service"
)

// ServiceSnapshot is one row of the inspection listing.
type ServiceSnapshot struct {
	Addr         string `json:"addr"`
	Name         string `json:"name,omitempty"`
	MailboxDepth int    `json:"mailbox_depth"`
	RefCount     int32  `json:"ref_count"`
	Stalled      bool   `json:"stalled"`
}

// Inspector reads live runtime state on demand. It never mutates
// anything it touches.
type Inspector struct {
	reg  *registry.Registry
	core *service.Core
}

func NewInspector(reg *registry.Registry, core *service.Core) *Inspector {
	return &Inspector{reg: reg, core: core}
}

func (i *Inspector) Snapshot() []ServiceSnapshot {
	entries := i.reg.Snapshot()
	out := make([]ServiceSnapshot, 0, len(entries))
	for _, e := range entries {
		ctx, ok := e.(*service.Context)
		if !ok {
			continue
		}
		name := ctx.Name
		if name == "" {
			if n, found := i.reg.NameOf(ctx.Addr()); found {
				name = n
			}
		}
		out = append(out, ServiceSnapshot{
			Addr:         ctx.Addr().String(),
			Name:         name,
			MailboxDepth: ctx.Mailbox.Len(),
			RefCount:     ctx.RefCount(),
			Stalled:      ctx.Stalled(),
		})
	}
	return out
}

func (i *Inspector) LiveCount() int64 { return i.core.LiveServiceCount() }
