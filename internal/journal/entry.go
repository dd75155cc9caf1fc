package journal

import (
	"context"
	"time"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

// Status is the persistence state of a journal entry.
type Status string

// Entry statuses.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Entry is one trade in the log together with its persistence state.
// LocalID is stable for the entry's lifetime; Trade.ID is set once confirmed.
type Entry struct {
	LocalID     string        `json:"local_id"`
	Status      Status        `json:"status"`
	Error       string        `json:"error,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Trade       *domain.Trade `json:"trade"`
}

func (e *Entry) clone() Entry {
	c := *e
	c.Trade = e.Trade.Clone()
	return c
}

// EventKind names a journal change delivered to listeners.
type EventKind string

// Event kinds.
const (
	EventConfirmed EventKind = "confirmed"
	EventFailed    EventKind = "failed"
	EventUpdated   EventKind = "updated"
	EventDeleted   EventKind = "deleted"
)

// Event describes a change that reached the store (or failed to).
type Event struct {
	Kind       EventKind `json:"kind"`
	StrategyID string    `json:"strategy_id"`
	Entry      Entry     `json:"entry"`
}

// Listener observes journal changes. OnJournalEvent is called without the
// journal lock held and must not block for long.
type Listener interface {
	OnJournalEvent(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event)

// OnJournalEvent calls f.
func (f ListenerFunc) OnJournalEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}
