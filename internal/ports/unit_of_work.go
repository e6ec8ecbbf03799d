package ports

import "context"

// UnitOfWork defines transaction boundaries for usecases.
//
// Callback-style: returning an error rolls the scope back, returning nil
// commits it. The context passed to fn carries the bound transaction and must
// be handed to every repository call.
type UnitOfWork interface {
	// WithTx joins the transaction already running on ctx, or starts one.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithNewTx suspends any running transaction and runs fn in an
	// independent one.
	WithNewTx(ctx context.Context, fn func(ctx context.Context) error) error
}
