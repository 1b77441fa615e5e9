package server

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

// VisemeEvent is broadcast on every viseme or state change.
type VisemeEvent struct {
	Viseme lipsync.Viseme `json:"viseme"`
	State  lipsync.State  `json:"state"`
	At     time.Time      `json:"at"`
}

const subscriberBuffer = 32

// Hub fans avatar events out to WebSocket subscribers. Publishing never
// blocks: a subscriber that falls behind loses events.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	current VisemeEvent
	subs    map[chan VisemeEvent]struct{}
	closed  bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		current: VisemeEvent{Viseme: lipsync.VisemeSil, State: lipsync.StateIdle, At: time.Now()},
		subs:    make(map[chan VisemeEvent]struct{}),
	}
}

// Hooks returns scheduler hooks that publish into the hub.
func (h *Hub) Hooks() lipsync.Hooks {
	return lipsync.Hooks{
		OnViseme: func(v lipsync.Viseme) {
			h.publish(func(e *VisemeEvent) { e.Viseme = v })
		},
		OnState: func(s lipsync.State) {
			h.publish(func(e *VisemeEvent) { e.State = s })
		},
	}
}

func (h *Hub) publish(update func(*VisemeEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	update(&h.current)
	h.current.At = time.Now()

	for ch := range h.subs {
		select {
		case ch <- h.current:
		default:
			h.logger.Debug("Dropping viseme event for slow subscriber")
		}
	}
}

// Subscribe registers a subscriber. The current event is delivered first.
// The channel is closed by cancel or when the hub closes.
func (h *Hub) Subscribe() (<-chan VisemeEvent, func()) {
	ch := make(chan VisemeEvent, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}
	ch <- h.current
	h.subs[ch] = struct{}{}

	return ch, func() { h.unsubscribe(ch) }
}

func (h *Hub) unsubscribe(ch chan VisemeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Current returns the latest event.
func (h *Hub) Current() VisemeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
