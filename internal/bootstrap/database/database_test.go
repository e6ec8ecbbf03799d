package database

import (
	"context"
	"path/filepath"
	"testing"

	"txscope/internal/bootstrap/config"
)

func TestSQLiteDSNAddsBusyTimeout(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "plain path",
			cfg:  config.DatabaseConfig{DSN: "state.sqlite", BusyTimeoutMS: 250},
			want: "state.sqlite?_pragma=busy_timeout%28250%29",
		},
		{
			name: "existing query",
			cfg:  config.DatabaseConfig{DSN: "file:state.sqlite?cache=shared", BusyTimeoutMS: 1},
			want: "file:state.sqlite?cache=shared&_pragma=busy_timeout%281%29",
		},
		{
			name: "already set",
			cfg:  config.DatabaseConfig{DSN: "state.sqlite?_pragma=busy_timeout(9)", BusyTimeoutMS: 1},
			want: "state.sqlite?_pragma=busy_timeout(9)",
		},
		{
			name: "disabled",
			cfg:  config.DatabaseConfig{DSN: "state.sqlite"},
			want: "state.sqlite",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sqliteDSN(tc.cfg); got != tc.want {
				t.Fatalf("sqliteDSN() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "state.sqlite")
	db, err := Open(context.Background(), config.DatabaseConfig{
		Driver:        "sqlite",
		DSN:           dsn,
		MaxOpenConns:  2,
		BusyTimeoutMS: 100,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("MaxOpenConnections = %d", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error")
	}
}
