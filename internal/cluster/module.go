package cluster

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
	"github.com/relaygrid/actorhub/internal/runtime/service"
)

// Config holds the environment settings relevant to cluster forwarding,
// plus the broker URI a deployment needs to reach other harbors.
type Config struct {
	AMQPURI string
	Topic   string
}

func newAMQPConfig(cfg Config) amqp.Config {
	return amqp.NewDurablePubSubConfig(cfg.AMQPURI, func(topic string) string {
		return "actorhub." + topic
	})
}

func newPublisher(cfg Config, logger *slog.Logger) (message.Publisher, error) {
	return amqp.NewPublisher(newAMQPConfig(cfg), watermill.NewSlogLogger(logger))
}

func newSubscriber(cfg Config, logger *slog.Logger) (message.Subscriber, error) {
	return amqp.NewSubscriber(newAMQPConfig(cfg), watermill.NewSlogLogger(logger))
}

// Module wires the cluster forwarder into the composition root: a
// publisher feeding Forwarder (installed as service.Core.Cluster) and a
// subscriber router delivering inbound envelopes back into this harbor's
// Core.Send path.
var Module = fx.Module("cluster",
	fx.Provide(
		newPublisher,
		newSubscriber,
		func(pub message.Publisher, cfg Config, logger *slog.Logger) *Forwarder {
			return NewForwarder(pub, cfg.Topic, logger)
		},
	),
	fx.Invoke(registerForwarder, runReceiver),
)

func registerForwarder(core *service.Core, fw *Forwarder) {
	core.Cluster = fw
}

func runReceiver(lc fx.Lifecycle, sub message.Subscriber, core *service.Core, cfg Config, logger *slog.Logger) error {
	topic := cfg.Topic
	if topic == "" {
		topic = Exchange
	}
	recv := NewReceiver(func(dest, source handle.Handle, typ mailbox.Type, session int32, payload []byte) {
		core.Send(nil, source, dest, typ, session, payload, mailbox.FlagDontCopy)
	}, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			messages, err := sub.Subscribe(ctx, topic)
			if err != nil {
				return err
			}
			go func() {
				for msg := range messages {
					if _, err := recv.HandleMessage(msg); err != nil {
						logger.Error("cluster receiver error", slog.Any("err", err))
					}
					msg.Ack()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return sub.Close()
		},
	})
	return nil
}
