package resource

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"txscope/internal/errs"
	"txscope/internal/ports"
)

// Provider hands out handles backed by dedicated connections from the gorm
// pool.
type Provider struct {
	db          *gorm.DB
	sqlDB       *sql.DB
	outstanding atomic.Int64
}

var _ ports.ResourceProvider = (*Provider)(nil)

func NewProvider(db *gorm.DB) (*Provider, error) {
	if db == nil {
		return nil, ErrDatabaseRequired
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Wrap(err, "get sql db")
	}
	return &Provider{db: db, sqlDB: sqlDB}, nil
}

func (p *Provider) Acquire(ctx context.Context) (ports.ResourceHandle, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	conn, err := p.sqlDB.Conn(ctx)
	if err != nil {
		return nil, errs.WithStack(errs.Wrap(err, "acquire connection"))
	}

	p.outstanding.Add(1)
	return &Handle{
		id:         uuid.NewString(),
		conn:       conn,
		root:       p.db,
		onClose:    func() { p.outstanding.Add(-1) },
		autoCommit: true,
		open:       true,
	}, nil
}

func (p *Provider) Release(ctx context.Context, handle ports.ResourceHandle) error {
	h, ok := handle.(*Handle)
	if !ok || h == nil {
		return fmt.Errorf("%w: %T", ErrUnsupportedHandle, handle)
	}
	return h.Close(ctx)
}

// Outstanding is the number of acquired handles not yet released.
func (p *Provider) Outstanding() int64 {
	return p.outstanding.Load()
}
