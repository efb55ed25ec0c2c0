package bus

import (
	"context"
	"log"
	"sync"
)

// MessageBus carries inbound user messages toward the engine and outbound
// notifications toward delivery channels. Channels push into Inbound
// directly; outbound routing goes through per-channel subscribers.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan Notification

	mu          sync.RWMutex
	subscribers map[string]func(Notification)
}

func NewMessageBus(bufSize int) *MessageBus {
	if bufSize < 1 {
		bufSize = 1
	}
	return &MessageBus{
		Inbound:     make(chan InboundMessage, bufSize),
		Outbound:    make(chan Notification, bufSize),
		subscribers: make(map[string]func(Notification)),
	}
}

// SubscribeOutbound registers the delivery callback for a named channel.
// Subscribing the same name again replaces the previous callback.
func (b *MessageBus) SubscribeOutbound(channel string, fn func(Notification)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = fn
}

// DispatchOutbound routes outbound notifications to their subscribers until
// the context is cancelled. Notifications with an empty Channel go to every
// subscriber; notifications for unknown channels are dropped with a warning.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-b.Outbound:
			b.dispatch(n)
		}
	}
}

func (b *MessageBus) dispatch(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n.Channel == "" {
		for _, fn := range b.subscribers {
			fn(n)
		}
		return
	}
	fn, ok := b.subscribers[n.Channel]
	if !ok {
		log.Printf("[bus] no subscriber for channel %s, dropping %s notification", n.Channel, n.Kind)
		return
	}
	fn(n)
}
