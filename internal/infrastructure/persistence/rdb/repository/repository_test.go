package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"txscope/internal/bootstrap/config"
	"txscope/internal/bootstrap/database"
	"txscope/internal/domain/member"
	"txscope/internal/infrastructure/persistence/rdb/model"
	"txscope/internal/infrastructure/persistence/rdb/resource"
	"txscope/internal/txn"
)

func newTestEngine(t *testing.T) *txn.Engine {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver:        "sqlite",
		DSN:           filepath.Join(t.TempDir(), "repository.sqlite"),
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

	provider, err := resource.NewProvider(db)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	engine, err := txn.NewEngine(provider)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestRepositoriesRequireActiveTransaction(t *testing.T) {
	ctx := context.Background()
	members := NewMemberRepository()
	logs := NewLogRepository()

	if _, err := members.Save(ctx, member.Member{MemberID: "m1"}); !errors.Is(err, txn.ErrNoActiveTransaction) {
		t.Fatalf("Save() error = %v, want ErrNoActiveTransaction", err)
	}
	if _, err := members.FindByID(ctx, "m1"); !errors.Is(err, txn.ErrNoActiveTransaction) {
		t.Fatalf("FindByID() error = %v, want ErrNoActiveTransaction", err)
	}
	if err := logs.Save(ctx, member.NewLog("m1")); !errors.Is(err, txn.ErrNoActiveTransaction) {
		t.Fatalf("logs.Save() error = %v, want ErrNoActiveTransaction", err)
	}
}

func TestMemberRepositoryCRUD(t *testing.T) {
	engine := newTestEngine(t)
	repo := NewMemberRepository()

	err := engine.Run(context.Background(), txn.Required, func(ctx context.Context) error {
		if _, err := repo.Save(ctx, member.Member{MemberID: "m1", Money: 100}); err != nil {
			return err
		}
		if err := repo.Update(ctx, "m1", 70); err != nil {
			return err
		}
		got, err := repo.FindByID(ctx, "m1")
		if err != nil {
			return err
		}
		if got.Money != 70 {
			t.Fatalf("Money = %d, want 70", got.Money)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	err = engine.Run(context.Background(), txn.Required, func(ctx context.Context) error {
		if err := repo.Delete(ctx, "m1"); err != nil {
			return err
		}
		_, err := repo.FindByID(ctx, "m1")
		return err
	})
	if !errors.Is(err, member.ErrMemberNotFound) {
		t.Fatalf("FindByID() after Delete error = %v, want ErrMemberNotFound", err)
	}
}

func TestMemberRepositoryTranslatesDuplicateKey(t *testing.T) {
	engine := newTestEngine(t)
	repo := NewMemberRepository()

	save := func(ctx context.Context) error {
		_, err := repo.Save(ctx, member.Member{MemberID: "dup"})
		return err
	}
	if err := engine.Run(context.Background(), txn.Required, save); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	err := engine.Run(context.Background(), txn.Required, save)
	if !errors.Is(err, member.ErrDuplicateMember) {
		t.Fatalf("second Save() error = %v, want ErrDuplicateMember", err)
	}
}

func TestMemberRepositoryUpdateMissing(t *testing.T) {
	engine := newTestEngine(t)
	repo := NewMemberRepository()

	err := engine.Run(context.Background(), txn.Required, func(ctx context.Context) error {
		return repo.Update(ctx, "ghost", 1)
	})
	if !errors.Is(err, member.ErrMemberNotFound) {
		t.Fatalf("Update() error = %v, want ErrMemberNotFound", err)
	}
}

func TestLogRepositoryRejectsMarkedMessageAfterWrite(t *testing.T) {
	engine := newTestEngine(t)
	logs := NewLogRepository()
	message := "join " + member.LogFailureMarker

	// committing despite the error shows the row was written before rejection
	ctx, scope, err := engine.Begin(context.Background(), txn.Required)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := logs.Save(ctx, member.Log{Message: message}); !errors.Is(err, member.ErrLogRejected) {
		t.Fatalf("Save() error = %v, want ErrLogRejected", err)
	}
	if err := engine.Complete(ctx, scope, txn.Commit); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	err = engine.Run(context.Background(), txn.Required, func(ctx context.Context) error {
		got, err := logs.FindByMessage(ctx, message)
		if err != nil {
			return err
		}
		if got.Message != message {
			t.Fatalf("Message = %q", got.Message)
		}
		_, err = logs.FindByMessage(ctx, "missing")
		return err
	})
	if !errors.Is(err, member.ErrLogNotFound) {
		t.Fatalf("FindByMessage() error = %v, want ErrLogNotFound", err)
	}
}

func TestTranslatePassesThroughUnknownErrors(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := translate("insert member", cause, member.ErrMemberNotFound)
	if !errors.Is(err, cause) {
		t.Fatalf("translate() error = %v, want cause", err)
	}
	if errors.Is(err, member.ErrMemberNotFound) || errors.Is(err, member.ErrDuplicateMember) {
		t.Fatalf("translate() misclassified %v", err)
	}
	if translate("noop", nil, nil) != nil {
		t.Fatalf("translate(nil) != nil")
	}
}

func TestTranslateUniqueMessage(t *testing.T) {
	err := translate("insert member", errors.New("UNIQUE constraint failed: member.member_id"), nil)
	if !errors.Is(err, member.ErrDuplicateMember) {
		t.Fatalf("translate() error = %v, want ErrDuplicateMember", err)
	}
}
