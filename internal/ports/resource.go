package ports

import "context"

// ResourceHandle is one physical connection able to run a single transaction
// at a time. It starts in auto-commit mode; Begin leaves it.
type ResourceHandle interface {
	ID() string
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// Close restores auto-commit and returns the connection to its source.
	// It must be called exactly once.
	Close(ctx context.Context) error
	AutoCommit() bool
	IsOpen() bool
}

// ResourceProvider hands out handles and takes them back. Release closes the
// handle.
type ResourceProvider interface {
	Acquire(ctx context.Context) (ResourceHandle, error)
	Release(ctx context.Context, handle ResourceHandle) error
}
