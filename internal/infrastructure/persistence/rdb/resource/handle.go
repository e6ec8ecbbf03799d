package resource

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"txscope/internal/errs"
	"txscope/internal/ports"
)

var (
	ErrHandleClosed      = errors.New("resource handle is closed")
	ErrTransactionActive = errors.New("resource handle already has an active transaction")
	ErrNoTransaction     = errors.New("resource handle has no active transaction")
	ErrUnsupportedHandle = errors.New("unsupported resource handle")
	ErrDatabaseRequired  = errors.New("resource provider requires a database")
)

// Handle owns one pooled *sql.Conn for its whole life. Begin starts a
// transaction on that connection; Close ends any leftover transaction and
// returns the connection to the pool.
type Handle struct {
	id       string
	conn     *sql.Conn
	root     *gorm.DB
	onClose  func()
	tx       *sql.Tx
	finished bool

	autoCommit bool
	open       bool
}

var _ ports.ResourceHandle = (*Handle)(nil)

func (h *Handle) ID() string { return h.id }

func (h *Handle) AutoCommit() bool { return h.autoCommit }

func (h *Handle) IsOpen() bool { return h.open }

func (h *Handle) Begin(ctx context.Context) error {
	if !h.open {
		return ErrHandleClosed
	}
	if h.tx != nil && !h.finished {
		return ErrTransactionActive
	}

	tx, err := h.conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.WithStack(errs.Wrap(err, "begin transaction"))
	}
	h.tx = tx
	h.finished = false
	h.autoCommit = false
	return nil
}

func (h *Handle) Commit(_ context.Context) error {
	if err := h.checkActive(); err != nil {
		return err
	}

	err := h.tx.Commit()
	h.finished = true
	if err != nil {
		return errs.WithStack(errs.Wrap(err, "commit transaction"))
	}
	return nil
}

func (h *Handle) Rollback(_ context.Context) error {
	if err := h.checkActive(); err != nil {
		return err
	}

	err := h.tx.Rollback()
	h.finished = true
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errs.WithStack(errs.Wrap(err, "rollback transaction"))
	}
	return nil
}

// Close rolls back an unfinished transaction, restores auto-commit and
// returns the connection to the pool. A second Close returns ErrHandleClosed.
func (h *Handle) Close(_ context.Context) error {
	if !h.open {
		return ErrHandleClosed
	}

	var err error
	if h.tx != nil && !h.finished {
		if rbErr := h.tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errs.Wrap(rbErr, "rollback unfinished transaction")
		}
	}
	h.tx = nil
	h.finished = false
	h.autoCommit = true

	if closeErr := h.conn.Close(); closeErr != nil {
		err = errors.Join(err, errs.Wrap(closeErr, "return connection to pool"))
	}
	h.open = false
	if h.onClose != nil {
		h.onClose()
	}
	return err
}

// DB returns a gorm session routed through this handle: the open transaction
// when there is one, the bare connection in auto-commit mode otherwise.
func (h *Handle) DB(ctx context.Context) (*gorm.DB, error) {
	if !h.open {
		return nil, ErrHandleClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var pool gorm.ConnPool = h.conn
	if h.tx != nil && !h.finished {
		pool = h.tx
	}

	db := h.root.Session(&gorm.Session{
		NewDB:                  true,
		Context:                ctx,
		SkipDefaultTransaction: true,
	})
	db.Statement.ConnPool = pool
	return db, nil
}

func (h *Handle) checkActive() error {
	if !h.open {
		return ErrHandleClosed
	}
	if h.tx == nil || h.finished {
		return ErrNoTransaction
	}
	return nil
}
