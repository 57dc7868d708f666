package service

import (
	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

// SendTimeout implements timer.Sender: it delivers a response-typed
// message carrying the stored session directly to target, with no
// on-behalf-of source service.
func (c *Core) SendTimeout(target handle.Handle, session int32) {
	c.Send(nil, 0, target, mailbox.TypeResponse, session, nil, 0)
}
