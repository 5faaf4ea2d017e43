package tracker

import "github.com/raysh454/shadowzap/internal/model"

type EventType string

const (
	// EventStatus reports a non-terminal change to the tracked record.
	EventStatus EventType = "status"
	// EventCompleted and EventFailed are the single completion notification
	// of a scan.
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event carries a snapshot of the record after the change.
type Event struct {
	Type   EventType         `json:"type"`
	Record *model.ScanRecord `json:"record"`
}

// Observer receives tracker events in the order they were produced.
type Observer func(Event)

type subscription struct {
	id int
	fn Observer
}

// Subscribe registers fn and returns a function that removes it.
func (t *Tracker) Subscribe(fn Observer) (unsubscribe func()) {
	t.mu.Lock()
	t.nextSub++
	id := t.nextSub
	t.subs = append(t.subs, subscription{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s.id == id {
				t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
				return
			}
		}
	}
}

func (t *Tracker) enqueueLocked(typ EventType, rec *model.ScanRecord) {
	t.pending = append(t.pending, Event{Type: typ, Record: rec.Clone()})
}

// flush delivers queued events outside the lock. Only one goroutine drains at
// a time, so observers see events in queue order and may call back into the
// tracker.
func (t *Tracker) flush() {
	t.mu.Lock()
	if t.draining {
		t.mu.Unlock()
		return
	}
	t.draining = true
	for len(t.pending) > 0 {
		ev := t.pending[0]
		t.pending = t.pending[1:]
		subs := append([]subscription(nil), t.subs...)
		t.mu.Unlock()

		for _, s := range subs {
			s.fn(ev)
		}

		t.mu.Lock()
	}
	t.draining = false
	t.mu.Unlock()
}
