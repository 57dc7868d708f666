// Package netservice bridges the network reactor's event stream to the
// actor runtime's mailboxes: every reactor.Event becomes a message pushed
// onto its owning service's mailbox, so reactor output always reaches a
// service through its mailbox, never a direct callback.
package netservice

import (
	"encoding/json"
	"log/slog"

	"github.com/relaygrid/actorhub/internal/netreactor/reactor"
	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/service"
)

// Notify is the JSON body carried by every non-data network message; the
// owning service's Module.Handle implementation decodes it to learn which
// socket changed state and why.
type Notify struct {
	Kind     string `json:"kind"`
	SocketID uint32 `json:"socket_id"`
	UserData uint32 `json:"user_data,omitempty"`
	Err      string `json:"err,omitempty"`
	PeerIP   string `json:"peer_ip,omitempty"`
	PeerPort int    `json:"peer_port,omitempty"`
}

// Bridge adapts reactor.Sink onto *service.Core.
type Bridge struct {
	core *service.Core
	log  *slog.Logger
}

func NewBridge(core *service.Core, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{core: core, log: logger}
}

func (b *Bridge) Deliver(ev reactor.Event) {
	if ev.Owner.IsZero() {
		return
	}
	switch ev.Type {
	case reactor.EvData:
		b.core.Send(nil, 0, ev.Owner, mailbox.TypeClient, 0, ev.Data, mailbox.FlagDontCopy)
	case reactor.EvUDP:
		n := Notify{Kind: "udp", SocketID: ev.ID, PeerIP: ev.Peer.IP.String(), PeerPort: ev.Peer.Port}
		b.sendControl(ev.Owner, n, ev.Data)
	default:
		b.sendControl(ev.Owner, b.notifyFor(ev), nil)
	}
}

func (b *Bridge) notifyFor(ev reactor.Event) Notify {
	n := Notify{SocketID: ev.ID, UserData: ev.UserData}
	switch ev.Type {
	case reactor.EvConnect:
		n.Kind = "connect"
	case reactor.EvClose:
		n.Kind = "close"
	case reactor.EvAccept:
		n.Kind = "accept"
	case reactor.EvError:
		n.Kind = "error"
		if ev.Err != nil {
			n.Err = ev.Err.Error()
		}
	case reactor.EvWarning:
		n.Kind = "warning"
	case reactor.EvExit:
		n.Kind = "exit"
	}
	return n
}

// sendControl pushes a TypeSystem message whose payload is the JSON-encoded
// Notify, optionally followed by an embedded data blob (used for UDP
// datagrams, which carry both metadata and a body).
func (b *Bridge) sendControl(owner handle.Handle, n Notify, data []byte) {
	body, err := json.Marshal(struct {
		Notify
		Data []byte `json:"data,omitempty"`
	}{Notify: n, Data: data})
	if err != nil {
		b.log.Warn("netservice: marshal notify failed", slog.Any("err", err))
		return
	}
	b.core.Send(nil, 0, owner, mailbox.TypeSystem, 0, body, mailbox.FlagDontCopy)
}
