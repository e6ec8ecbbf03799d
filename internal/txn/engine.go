package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"txscope/internal/bootstrap/logging"
	"txscope/internal/ports"
)

// Engine decides, per Begin, whether to join, suspend or start a physical
// transaction, and finishes it on Complete.
type Engine struct {
	provider ports.ResourceProvider
	observer Observer
}

type Option func(*Engine)

func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		if observer != nil {
			e.observer = observer
		}
	}
}

func NewEngine(provider ports.ResourceProvider, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	e := &Engine{
		provider: provider,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Begin opens a scope. The returned context carries the call chain's
// registry and must be used for every participant call inside the scope and
// for nested Begin calls. Every successful Begin must be matched by exactly
// one Complete.
func (e *Engine) Begin(ctx context.Context, propagation Propagation) (context.Context, *Scope, error) {
	if ctx == nil {
		return nil, nil, errors.New("context is required")
	}
	if !propagation.valid() {
		return ctx, nil, fmt.Errorf("%w: %s", ErrUnknownPropagation, propagation)
	}

	ctx, reg := ensureRegistry(ctx)

	switch propagation {
	case Required:
		if active, ok := reg.current(); ok {
			return ctx, e.join(ctx, reg, active, propagation), nil
		}
		scope, err := e.start(ctx, reg, propagation, nil)
		if err != nil {
			return ctx, nil, err
		}
		return ctx, scope, nil

	case RequiresNew:
		var suspended *binding
		if _, ok := reg.current(); ok {
			b, err := reg.unbind()
			if err != nil {
				return ctx, nil, err
			}
			suspended = &b
			e.emit(ctx, EventSuspended, reg, b.owner, b.handle, propagation)
			logging.Debug(e.logCtx(ctx, reg), "suspending current transaction",
				slog.String("handle_id", b.handle.ID()),
			)
		}

		scope, err := e.start(ctx, reg, propagation, suspended)
		if err != nil {
			if suspended != nil {
				if rebindErr := e.resume(ctx, reg, *suspended, propagation); rebindErr != nil {
					err = errors.Join(err, rebindErr)
				}
			}
			return ctx, nil, err
		}
		return ctx, scope, nil
	}

	return ctx, nil, fmt.Errorf("%w: %s", ErrUnknownPropagation, propagation)
}

// Complete finishes scope with the requested outcome.
//
// A joined scope never touches the physical transaction: Rollback only marks
// the owner rollback-only. An owning scope commits or rolls back and then
// releases its handle; a Commit on a rollback-only transaction rolls back and
// returns ErrUnexpectedRollback. A suspended transaction is resumed last.
func (e *Engine) Complete(ctx context.Context, scope *Scope, outcome Outcome) error {
	if scope == nil {
		return ErrScopeRequired
	}
	if !outcome.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownOutcome, outcome)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reg := scope.registry
	if err := reg.pop(scope); err != nil {
		return fmt.Errorf("%w: scope %s", err, scope.id)
	}
	scope.completed = true

	logCtx := logging.WithAttrs(e.logCtx(ctx, reg),
		slog.String("scope_id", scope.id.String()),
		slog.String("handle_id", scope.handleID()),
		slog.String("propagation", scope.propagation.String()),
		slog.String("outcome", outcome.String()),
	)

	var err error
	switch {
	case !scope.newTransaction:
		if outcome == Rollback {
			scope.markRollbackOnly()
			e.emit(ctx, EventRollbackOnly, reg, scope, scope.handle, scope.propagation)
			logging.Debug(logCtx, "participating scope failed, marking transaction rollback-only")
		}
	case outcome == Rollback:
		err = e.finish(ctx, logCtx, scope, false)
	case scope.rollbackOnly:
		e.emit(ctx, EventUnexpectedRollback, reg, scope, scope.handle, scope.propagation)
		logging.Warn(logCtx, "commit requested on rollback-only transaction, rolling back")
		err = fmt.Errorf("%w: scope %s", ErrUnexpectedRollback, scope.id)
		if finishErr := e.finish(ctx, logCtx, scope, false); finishErr != nil {
			err = errors.Join(err, finishErr)
		}
	default:
		err = e.finish(ctx, logCtx, scope, true)
	}

	if scope.suspended != nil {
		if resumeErr := e.resume(ctx, reg, *scope.suspended, scope.propagation); resumeErr != nil {
			err = errors.Join(err, resumeErr)
		}
		scope.suspended = nil
	}

	return err
}

func (e *Engine) join(ctx context.Context, reg *Registry, active binding, propagation Propagation) *Scope {
	scope := &Scope{
		id:          uuid.New(),
		propagation: propagation,
		registry:    reg,
		handle:      active.handle,
		owner:       active.owner,
		depth:       reg.Depth(),
	}
	reg.push(scope)

	e.emit(ctx, EventJoined, reg, scope, active.handle, propagation)
	logging.Debug(e.logCtx(ctx, reg), "participating in existing transaction",
		slog.String("scope_id", scope.id.String()),
		slog.String("handle_id", active.handle.ID()),
		slog.Int("depth", scope.depth),
	)
	return scope
}

func (e *Engine) start(ctx context.Context, reg *Registry, propagation Propagation, suspended *binding) (*Scope, error) {
	handle, err := e.provider.Acquire(ctx)
	if err != nil {
		return nil, resourceError("acquire", err)
	}
	if handle == nil {
		return nil, resourceError("acquire", errors.New("provider returned nil handle"))
	}

	if err := handle.Begin(ctx); err != nil {
		beginErr := resourceError("begin", err)
		if relErr := e.provider.Release(ctx, handle); relErr != nil {
			beginErr = errors.Join(beginErr, resourceError("release", relErr))
		}
		return nil, beginErr
	}

	scope := &Scope{
		id:             uuid.New(),
		propagation:    propagation,
		registry:       reg,
		handle:         handle,
		depth:          reg.Depth(),
		newTransaction: true,
		suspended:      suspended,
	}
	scope.owner = scope

	if err := reg.bind(binding{handle: handle, owner: scope}); err != nil {
		if rbErr := handle.Rollback(ctx); rbErr != nil {
			err = errors.Join(err, resourceError("rollback", rbErr))
		}
		if relErr := e.provider.Release(ctx, handle); relErr != nil {
			err = errors.Join(err, resourceError("release", relErr))
		}
		return nil, err
	}
	reg.push(scope)

	e.emit(ctx, EventCreated, reg, scope, handle, propagation)
	logging.Debug(e.logCtx(ctx, reg), "creating new transaction",
		slog.String("scope_id", scope.id.String()),
		slog.String("handle_id", handle.ID()),
		slog.String("propagation", propagation.String()),
		slog.Int("depth", scope.depth),
	)
	return scope, nil
}

// finish performs the physical commit or rollback and always releases the
// handle afterwards, whatever the outcome of the physical call.
func (e *Engine) finish(ctx context.Context, logCtx context.Context, scope *Scope, commit bool) (err error) {
	defer func() {
		if relErr := e.release(ctx, logCtx, scope); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()

	if commit {
		if cErr := scope.handle.Commit(ctx); cErr != nil {
			logging.Error(logCtx, "physical commit failed", slog.Any("err", cErr))
			return resourceError("commit", cErr)
		}
		e.emit(ctx, EventCommitted, scope.registry, scope, scope.handle, scope.propagation)
		logging.Debug(logCtx, "transaction committed")
		return nil
	}

	if rbErr := scope.handle.Rollback(ctx); rbErr != nil {
		logging.Error(logCtx, "physical rollback failed", slog.Any("err", rbErr))
		return resourceError("rollback", rbErr)
	}
	e.emit(ctx, EventRolledBack, scope.registry, scope, scope.handle, scope.propagation)
	logging.Debug(logCtx, "transaction rolled back")
	return nil
}

func (e *Engine) release(ctx context.Context, logCtx context.Context, scope *Scope) error {
	var err error
	if active, ok := scope.registry.current(); ok && active.owner == scope {
		if _, unbindErr := scope.registry.unbind(); unbindErr != nil {
			err = unbindErr
		}
	}

	if relErr := e.provider.Release(ctx, scope.handle); relErr != nil {
		logging.Error(logCtx, "release resource failed", slog.Any("err", relErr))
		err = errors.Join(err, resourceError("release", relErr))
	}
	e.emit(ctx, EventReleased, scope.registry, scope, scope.handle, scope.propagation)
	return err
}

func (e *Engine) resume(ctx context.Context, reg *Registry, suspended binding, propagation Propagation) error {
	if err := reg.bind(suspended); err != nil {
		return err
	}
	e.emit(ctx, EventResumed, reg, suspended.owner, suspended.handle, propagation)
	logging.Debug(e.logCtx(ctx, reg), "resuming suspended transaction",
		slog.String("handle_id", suspended.handle.ID()),
	)
	return nil
}

func (e *Engine) emit(ctx context.Context, kind EventKind, reg *Registry, scope *Scope, handle ports.ResourceHandle, propagation Propagation) {
	ev := Event{
		Kind:        kind,
		ChainID:     reg.id,
		Propagation: propagation,
		Depth:       reg.Depth(),
	}
	if scope != nil {
		ev.ScopeID = scope.id
		ev.Depth = scope.depth
	}
	if handle != nil {
		ev.HandleID = handle.ID()
	}
	e.observer.Observe(ctx, ev)
}

func (e *Engine) logCtx(ctx context.Context, reg *Registry) context.Context {
	return logging.WithAttrs(ctx,
		slog.String("component", "txn.engine"),
		slog.String("chain_id", reg.id.String()),
	)
}
