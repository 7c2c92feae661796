package stream

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event kinds pushed to dashboard subscribers.
const (
	KindViolation       = "violation"
	KindPhaseTransition = "phase_transition"
	KindRiskLevel       = "risk_level"
)

// Event is one engine occurrence fanned out to risk-monitor and trader
// dashboards. Payload records carry their own record_id so consumers can
// de-duplicate on redelivery.
type Event struct {
	Kind      string    `json:"kind"`
	AccountID uint64    `json:"account_id"`
	Payload   any       `json:"payload"`
	At        time.Time `json:"at"`
}

// Hub fans engine events out to websocket subscribers. Publishing never
// blocks the evaluator: a subscriber whose queue is full misses the event and
// is expected to re-sync from the REST surface.
type Hub struct {
	Logger *zap.Logger

	buffer int

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		Logger: logger,
		buffer: buffer,
		subs:   map[chan Event]struct{}{},
	}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			if h.Logger != nil {
				h.Logger.Debug("stream: dropped event for slow subscriber",
					zap.String("kind", ev.Kind),
					zap.Uint64("account_id", ev.AccountID),
				)
			}
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
