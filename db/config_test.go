package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveSQLiteDSN(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"memory", ":memory:", ":memory:"},
		{"file uri", "file:x.db?mode=memory", "file:x.db?mode=memory"},
		{"empty default", "", filepath.Join(home, ".opguard", "opguard.sqlite")},
		{"home relative", "~/data/guard.sqlite", filepath.Join(home, "data", "guard.sqlite")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveSQLiteDSN(tc.in)
			if err != nil {
				t.Fatalf("ResolveSQLiteDSN(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ResolveSQLiteDSN(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(home, "data")); err != nil {
		t.Fatalf("expected parent dir to be created: %v", err)
	}
}

func TestOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "opguard.sqlite")
	gdb, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatal(err)
	}
	defer sqlDB.Close()

	if !gdb.Migrator().HasTable("audit_records") {
		t.Fatal("expected audit_records table after automigrate")
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "postgres"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
