package events

import "sync"

// Envelope wraps an event for stream consumers.
type Envelope struct {
	Type  string      `json:"type"`
	Trade *TradeEvent `json:"trade,omitempty"`
	Error *ErrorEvent `json:"error,omitempty"`
}

// Broadcaster fans out events to all subscribers via buffered channels.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Envelope]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[chan Envelope]struct{}),
		buffer: buffer,
	}
}

func (b *Broadcaster) Error(ev ErrorEvent) {
	b.Publish(Envelope{Type: "error", Error: &ev})
}

func (b *Broadcaster) Trade(ev TradeEvent) {
	b.Publish(Envelope{Type: "trade", Trade: &ev})
}

// Publish sends env to all subscribers, dropping it for slow readers.
func (b *Broadcaster) Publish(env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- env:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives events until Unsubscribe is called.
func (b *Broadcaster) Subscribe() chan Envelope {
	ch := make(chan Envelope, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *Broadcaster) Unsubscribe(ch chan Envelope) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
