package resource

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"txscope/internal/bootstrap/config"
	"txscope/internal/bootstrap/database"
	"txscope/internal/infrastructure/persistence/rdb/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:        "sqlite",
		DSN:           filepath.Join(t.TempDir(), "resource.sqlite"),
		MaxOpenConns:  4,
		BusyTimeoutMS: 2000,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func acquire(t *testing.T, p *Provider) *Handle {
	t.Helper()
	handle, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	h, ok := handle.(*Handle)
	if !ok {
		t.Fatalf("Acquire() returned %T", handle)
	}
	return h
}

func countMembers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.Member{}).Count(&n).Error; err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	return n
}

func TestHandleCommitPersists(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p, err := NewProvider(db)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	h := acquire(t, p)
	if !h.AutoCommit() || !h.IsOpen() {
		t.Fatalf("fresh handle autoCommit=%v open=%v", h.AutoCommit(), h.IsOpen())
	}
	if err := h.Begin(ctx); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if h.AutoCommit() {
		t.Fatalf("AutoCommit() = true after Begin")
	}
	if err := h.Begin(ctx); !errors.Is(err, ErrTransactionActive) {
		t.Fatalf("second Begin() error = %v, want ErrTransactionActive", err)
	}

	session, err := h.DB(ctx)
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	if err := session.Create(&model.Member{MemberID: "m1", Money: 10}).Error; err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := h.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := h.Commit(ctx); !errors.Is(err, ErrNoTransaction) {
		t.Fatalf("second Commit() error = %v, want ErrNoTransaction", err)
	}
	if err := h.Rollback(ctx); !errors.Is(err, ErrNoTransaction) {
		t.Fatalf("Rollback() after Commit error = %v, want ErrNoTransaction", err)
	}

	if err := p.Release(ctx, h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if got := countMembers(t, db); got != 1 {
		t.Fatalf("members = %d, want 1", got)
	}
}

func TestHandleRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p, err := NewProvider(db)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	h := acquire(t, p)
	if err := h.Begin(ctx); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	session, err := h.DB(ctx)
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	if err := session.Create(&model.Member{MemberID: "m1"}).Error; err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := h.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if err := p.Release(ctx, h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	if got := countMembers(t, db); got != 0 {
		t.Fatalf("members = %d, want 0", got)
	}
}

func TestHandleCloseRestoresAutoCommitOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p, err := NewProvider(db)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	h := acquire(t, p)
	if got := p.Outstanding(); got != 1 {
		t.Fatalf("Outstanding() = %d, want 1", got)
	}
	if err := h.Begin(ctx); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	session, err := h.DB(ctx)
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	if err := session.Create(&model.Member{MemberID: "left-open"}).Error; err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// closing with an unfinished transaction rolls it back
	if err := h.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !h.AutoCommit() || h.IsOpen() {
		t.Fatalf("closed handle autoCommit=%v open=%v", h.AutoCommit(), h.IsOpen())
	}
	if got := p.Outstanding(); got != 0 {
		t.Fatalf("Outstanding() = %d, want 0", got)
	}
	if err := h.Close(ctx); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("second Close() error = %v, want ErrHandleClosed", err)
	}
	if got := p.Outstanding(); got != 0 {
		t.Fatalf("Outstanding() after second Close = %d, want 0", got)
	}
	if _, err := h.DB(ctx); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("DB() after Close error = %v, want ErrHandleClosed", err)
	}
	if err := h.Begin(ctx); !errors.Is(err, ErrHandleClosed) {
		t.Fatalf("Begin() after Close error = %v, want ErrHandleClosed", err)
	}

	if got := countMembers(t, db); got != 0 {
		t.Fatalf("members = %d, want 0", got)
	}
}

func TestHandleWithoutTransactionAutoCommits(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	p, err := NewProvider(db)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	h := acquire(t, p)
	session, err := h.DB(ctx)
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	if err := session.Create(&model.Member{MemberID: "auto"}).Error; err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := h.Commit(ctx); !errors.Is(err, ErrNoTransaction) {
		t.Fatalf("Commit() without Begin error = %v, want ErrNoTransaction", err)
	}
	if err := p.Release(ctx, h); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if got := countMembers(t, db); got != 1 {
		t.Fatalf("members = %d, want 1", got)
	}
}

type foreignHandle struct{ *Handle }

func TestProviderRejectsForeignHandle(t *testing.T) {
	db := openTestDB(t)
	p, err := NewProvider(db)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if err := p.Release(context.Background(), foreignHandle{}); !errors.Is(err, ErrUnsupportedHandle) {
		t.Fatalf("Release() error = %v, want ErrUnsupportedHandle", err)
	}
}

func TestNewProviderRequiresDB(t *testing.T) {
	if _, err := NewProvider(nil); !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("NewProvider(nil) error = %v, want ErrDatabaseRequired", err)
	}
}
