// Package event maintains the append-only log of structured contract
// events visible to external observers.
package event

import (
	"sync"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
)

// Event is the record every mutating contract operation publishes. The
// field order (name, entity, actor, amount) is part of the external
// contract for indexers.
type Event struct {
	Name     string           `json:"name"`
	Entity   uint64           `json:"entity"`
	Actor    ledger.AccountID `json:"actor"`
	Amount   uint64           `json:"amount"`
	Contract string           `json:"contract"`
	Sequence uint64           `json:"sequence"`
}

// Handler defines a function that is called for every committed event.
type Handler func(evt Event)

// Log keeps the most recent events in memory and forwards every committed
// event to the registered handler.
type Log struct {
	mu      sync.Mutex
	seq     uint64
	recent  []Event
	keep    int
	handler Handler
}

// NewLog constructs a log that retains the keep most recent events.
func NewLog(keep int, handler Handler) *Log {
	return &Log{
		keep:    keep,
		handler: handler,
	}
}

// Append assigns sequence numbers to the committed events in emission
// order and forwards them to the handler.
func (l *Log) Append(events []Event) {
	l.mu.Lock()
	for i := range events {
		l.seq++
		events[i].Sequence = l.seq
		l.recent = append(l.recent, events[i])
	}
	if len(l.recent) > l.keep {
		l.recent = l.recent[len(l.recent)-l.keep:]
	}
	handler := l.handler
	l.mu.Unlock()

	if handler != nil {
		for _, evt := range events {
			handler(evt)
		}
	}
}

// Recent returns a copy of the retained events, oldest first.
func (l *Log) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]Event, len(l.recent))
	copy(events, l.recent)
	return events
}
