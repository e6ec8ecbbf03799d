package txn

import (
	"context"
	"errors"
)

// Run executes fn inside a scope opened with propagation. The scope is rolled
// back when fn returns an error or panics (the panic is re-raised once the
// scope is complete) and committed otherwise.
func (e *Engine) Run(ctx context.Context, propagation Propagation, fn func(ctx context.Context) error) (err error) {
	if fn == nil {
		return ErrFuncRequired
	}

	txCtx, scope, err := e.Begin(ctx, propagation)
	if err != nil {
		return err
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		if p := recover(); p != nil {
			_ = e.Complete(txCtx, scope, Rollback)
			panic(p)
		}
	}()

	if fnErr := fn(txCtx); fnErr != nil {
		completed = true
		if cErr := e.Complete(txCtx, scope, Rollback); cErr != nil {
			return errors.Join(fnErr, cErr)
		}
		return fnErr
	}

	completed = true
	return e.Complete(txCtx, scope, Commit)
}
