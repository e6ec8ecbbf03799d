package txn

import (
	"context"

	"github.com/google/uuid"
)

type EventKind uint8

const (
	EventCreated EventKind = iota
	EventJoined
	EventSuspended
	EventResumed
	EventCommitted
	EventRolledBack
	EventRollbackOnly
	EventUnexpectedRollback
	EventReleased
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventJoined:
		return "joined"
	case EventSuspended:
		return "suspended"
	case EventResumed:
		return "resumed"
	case EventCommitted:
		return "committed"
	case EventRolledBack:
		return "rolled_back"
	case EventRollbackOnly:
		return "rollback_only"
	case EventUnexpectedRollback:
		return "unexpected_rollback"
	case EventReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event describes one propagation decision or physical action.
type Event struct {
	Kind        EventKind
	ScopeID     uuid.UUID
	ChainID     uuid.UUID
	HandleID    string
	Propagation Propagation
	Depth       int
}

// Observer receives engine events synchronously on the calling goroutine.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}
