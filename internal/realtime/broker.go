package realtime

import (
	"context"
	"sync"

	"feedgate/internal/observability"
)

// Event is a single message pushed to subscribed browsers or API
// clients.
type Event struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
}

type subscriber struct {
	ch       chan Event
	channels map[string]struct{}
}

// Broker fans events out to subscribers by channel. Slow subscribers
// drop events rather than block publishers.
type Broker struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[*subscriber]struct{})}
}

// Publish delivers the event to every subscriber of the channel.
func (b *Broker) Publish(channel, eventType string, data any) {
	event := Event{Channel: channel, Type: eventType, Data: data}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if _, ok := sub.channels[channel]; !ok {
			continue
		}
		select {
		case sub.ch <- event:
			observability.RecordRealtimePublish(context.Background(), "delivered")
		default:
			observability.RecordRealtimePublish(context.Background(), "dropped")
		}
	}
}

// Subscribe registers interest in the given channels. The returned
// cancel func must be called when the subscriber goes away.
func (b *Broker) Subscribe(channels []string) (<-chan Event, func()) {
	sub := &subscriber{
		ch:       make(chan Event, 16),
		channels: make(map[string]struct{}, len(channels)),
	}
	for _, c := range channels {
		sub.channels[c] = struct{}{}
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
	return sub.ch, cancel
}
