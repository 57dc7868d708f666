// Package errsink implements an error log forwarder: every error is
// formatted and pushed as a text message to the service named "logger".
// Every message is also logged locally via slog, so operators still see it
// when logger hasn't registered yet and the delivery is dropped.
package errsink

import (
	"fmt"
	"log/slog"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
)

// Resolver looks the logger service up by name; it is a thin seam onto
// *registry.Registry so errsink doesn't need to import service/registry
// directly (avoids a dependency cycle with service, which embeds an
// ErrorSink).
type Resolver interface {
	Find(name string) (handle.Handle, bool)
}

// Sink implements service.ErrorSink.
type Sink struct {
	resolver   Resolver
	loggerName string
	logger     *slog.Logger
	deliver    func(dest handle.Handle, text string)
}

// New builds a Sink. deliver is called with the resolved logger handle and
// the formatted text whenever the logger service is registered; pass a
// closure over the running Core's Send method (kept as a plain func to
// dodge an import cycle between errsink and service).
func New(resolver Resolver, loggerName string, logger *slog.Logger, deliver func(dest handle.Handle, text string)) *Sink {
	if loggerName == "" {
		loggerName = "logger"
	}
	return &Sink{resolver: resolver, loggerName: loggerName, logger: logger, deliver: deliver}
}

// Push logs text via slog and forwards it unchanged to the logger service
// when that name resolves and a deliver func was given.
func (s *Sink) Push(text string) {
	s.logger.Error(text)

	h, ok := s.resolver.Find(s.loggerName)
	if !ok || s.deliver == nil {
		return
	}
	s.deliver(h, text)
}

// Pushf is a convenience formatter.
func (s *Sink) Pushf(format string, args ...any) {
	s.Push(fmt.Sprintf(format, args...))
}
