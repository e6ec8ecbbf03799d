package uow

import (
	"context"

	"txscope/internal/ports"
	"txscope/internal/txn"
)

// UnitOfWork implements ports.UnitOfWork on the propagation engine.
type UnitOfWork struct {
	engine *txn.Engine
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(engine *txn.Engine) *UnitOfWork {
	return &UnitOfWork{engine: engine}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.engine.Run(ctx, txn.Required, fn)
}

func (u *UnitOfWork) WithNewTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.engine.Run(ctx, txn.RequiresNew, fn)
}
