// Package channel delivers coach notifications to the user and feeds
// user-authored messages back onto the bus. Every channel is optional; the
// engine works fully with none enabled.
package channel

import (
	"context"

	"github.com/Gabo8286/luna-engine/internal/bus"
)

// Channel is one delivery transport. Start may spin up goroutines or
// servers; Stop tears them down. Send pushes a single notification out.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(n bus.Notification) error
}

// BaseChannel carries what every channel shares: its name, the bus it feeds
// inbound messages into, and the sender allowlist.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom []string
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	return BaseChannel{name: name, bus: b, allowFrom: allowFrom}
}

func (c *BaseChannel) Name() string {
	return c.name
}

// IsAllowed reports whether a sender may talk to the coach. An empty
// allowlist admits everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	for _, allowed := range c.allowFrom {
		if allowed == senderID {
			return true
		}
	}
	return false
}
