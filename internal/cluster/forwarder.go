// Package cluster implements a thin forwarder for remote destinations:
// remote handles are detected by comparing the high byte of the
// destination against the local harbor id, and anything remote is handed
// off to a dedicated transport rather than delivered in-process.
package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

const Exchange = "actorhub.cluster"

// wireEnvelope is the JSON body published on the cluster exchange; the
// destination harbor's own forwarder republishes it onto that harbor's
// local run queue after decoding.
type wireEnvelope struct {
	Dest    handle.Handle `json:"dest"`
	Source  handle.Handle `json:"source"`
	Session int32         `json:"session"`
	Type    mailbox.Type  `json:"type"`
	Payload []byte        `json:"payload"`
}

// Forwarder publishes cluster-bound messages over watermill, with a
// circuit breaker around the publish call so a wedged broker degrades to
// fast failures instead of blocking the sending worker — the remote-case
// extension of "failure to locate frees the payload and returns failure".
type Forwarder struct {
	publisher message.Publisher
	topic     string
	breaker   *gobreaker.CircuitBreaker
	log       *slog.Logger
}

func NewForwarder(pub message.Publisher, topic string, logger *slog.Logger) *Forwarder {
	if topic == "" {
		topic = Exchange
	}
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cluster-forward",
		MaxRequests: 4,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cluster forwarder breaker state change", slog.String("breaker", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	return &Forwarder{publisher: pub, topic: topic, breaker: cb, log: logger}
}

func (f *Forwarder) Forward(dest handle.Handle, msg mailbox.Message) error {
	env := wireEnvelope{Dest: dest, Source: msg.Source, Session: msg.Session, Type: msg.Type, Payload: msg.Payload}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cluster: marshal envelope: %w", err)
	}

	_, err = f.breaker.Execute(func() (any, error) {
		wmsg := message.NewMessage(watermill.NewUUID(), body)
		return nil, f.publisher.Publish(f.topic, wmsg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			f.log.Warn("cluster forwarder circuit open, dropping message", slog.Any("dest", dest))
		}
		return err
	}
	return nil
}

// Receiver decodes inbound cluster envelopes and redelivers them through
// the same Send path a local sender would have used, so remote arrivals
// look identical to local ones once past this boundary.
type Receiver struct {
	deliver func(dest, source handle.Handle, typ mailbox.Type, session int32, payload []byte)
	log     *slog.Logger
}

func NewReceiver(deliver func(dest, source handle.Handle, typ mailbox.Type, session int32, payload []byte), logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{deliver: deliver, log: logger}
}

func (r *Receiver) HandleMessage(msg *message.Message) ([]*message.Message, error) {
	var env wireEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		r.log.Warn("cluster receiver: malformed envelope", slog.Any("err", err))
		return nil, nil
	}
	r.deliver(env.Dest, env.Source, env.Type, env.Session, env.Payload)
	return nil, nil
}
