package ledger

import "tradrx/internal/domain"

// Event types.
const (
	EventSnapshot  = "snapshot"
	EventPlaced    = "placed"
	EventCancelled = "cancelled"
)

// Event is the wire format for live ledger updates.
type Event struct {
	Type      string             `json:"type"`
	Trade     *domain.Trade      `json:"trade,omitempty"`     // placed/cancelled only
	Symbol    string             `json:"symbol,omitempty"`    // placed/cancelled only
	Position  float64            `json:"position"`            // symbol's position after the change
	Trades    []domain.Trade     `json:"trades,omitempty"`    // snapshot only
	Positions map[string]float64 `json:"positions,omitempty"` // snapshot only
}

// SubscribeWithSnapshot atomically captures the current state as a snapshot
// event and subscribes, so the returned channel carries exactly the
// mutations applied after the snapshot.
func (l *Ledger) SubscribeWithSnapshot(bufSize int) (int, Event, <-chan Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.stateLocked()
	id, ch := l.Subscribe(bufSize)
	return id, Event{Type: EventSnapshot, Trades: s.Trades, Positions: s.Positions}, ch
}

// Subscribe returns a channel that receives events in mutation order.
// bufSize controls the channel buffer; slow consumers will have events
// dropped.
func (l *Ledger) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	l.subsMu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subs[id] = ch
	l.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (l *Ledger) Unsubscribe(id int) {
	l.subsMu.Lock()
	if ch, ok := l.subs[id]; ok {
		delete(l.subs, id)
		close(ch)
	}
	l.subsMu.Unlock()
}

// broadcast sends an event to all subscribers without blocking. It is called
// with mu held so subscribers see mutations in the order they were applied.
func (l *Ledger) broadcast(e Event) {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()
	for id, ch := range l.subs {
		select {
		case ch <- e:
		default:
			l.log.Warn("dropping ledger event for slow subscriber", "sub", id, "type", e.Type)
		}
	}
}
