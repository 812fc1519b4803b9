package broadcast

import (
	"sync"

	"invtrack/internal/domain"
)

// Event types published for equipment changes.
const (
	EquipmentCreated = "equipment.created"
	EquipmentUpdated = "equipment.updated"
	EquipmentDeleted = "equipment.deleted"
	EquipmentMoved   = "equipment.moved"
)

// Event is one change notification. Equipment is the unit's state after the
// change; it is nil for deletions.
type Event struct {
	Type        string                    `json:"type"`
	EquipmentID string                    `json:"equipmentId"`
	Equipment   *domain.EquipmentView     `json:"equipment,omitempty"`
	Movement    *domain.EquipmentMovement `json:"movement,omitempty"`
}

const defaultBuffer = 32

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	buffer  int
	closed  bool
	dropped uint64
}

func NewHub() *Hub { return NewHubSize(defaultBuffer) }

// NewHubSize creates a Hub whose subscriber channels hold size events.
func NewHubSize(size int) *Hub {
	if size < 1 {
		size = 1
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: size}
}

// Subscribe registers a new subscriber. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped++
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped reports how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close ends every subscription. Later publishes are ignored.
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
