package engine

import (
	"sync"
	"time"
)

type EventType string

const (
	EventLog           EventType = "log"
	EventSwapResult    EventType = "swap_result"
	EventRuleTriggered EventType = "rule_triggered"
	EventStrategyEval  EventType = "strategy_eval"
	EventPerpOpened    EventType = "perp_opened"
	EventPerpClosed    EventType = "perp_closed"
	EventStatus        EventType = "status"
)

type Event struct {
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// that stops draining loses events rather than stalling the trading loop.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

const subscriberBuffer = 64

func NewBus() *Bus {
	return &Bus{subs: map[int]chan Event{}}
}

// Subscribe returns an event channel and an unsubscribe func.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}
