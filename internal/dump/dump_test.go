package dump

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfoltran/dbsync/internal/config"
)

func TestDumpEnv(t *testing.T) {
	params := config.ConnectionParams{Password: "secret", SSLEnabled: true}
	env := dumpEnv(params)

	var foundPassword, foundSSL bool
	for _, e := range env {
		if e == "PGPASSWORD=secret" {
			foundPassword = true
		}
		if e == "PGSSLMODE=require" {
			foundSSL = true
		}
	}
	if !foundPassword {
		t.Error("dumpEnv() missing PGPASSWORD")
	}
	if !foundSSL {
		t.Error("dumpEnv() missing PGSSLMODE=require")
	}
}

func TestDumpEnv_SSLDisabled(t *testing.T) {
	env := dumpEnv(config.ConnectionParams{SSLEnabled: false})
	for _, e := range env {
		if e == "PGSSLMODE=require" {
			t.Error("dumpEnv() should not set require when SSL disabled")
		}
	}
}

func TestProduce_RejectsInvalidTableName(t *testing.T) {
	_, err := Produce(nil, config.ConnectionParams{}, t.TempDir(), "bad; drop table")
	if err == nil {
		t.Fatal("Produce() expected error for invalid table name")
	}
}

func TestSweepStale_RemovesOnlyOldDumpAndSQLFiles(t *testing.T) {
	dir := t.TempDir()

	stale := filepath.Join(dir, "orders_1.dump")
	fresh := filepath.Join(dir, "orders_2.dump")
	staleSQL := filepath.Join(dir, "orders.sql")
	other := filepath.Join(dir, "orders.txt")

	for _, p := range []string{stale, fresh, staleSQL, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	old := time.Now().Add(-25 * time.Hour)
	for _, p := range []string{stale, staleSQL, other} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", p, err)
		}
	}

	SweepStale(dir, nil)

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("SweepStale() should have removed the stale .dump file")
	}
	if _, err := os.Stat(staleSQL); !os.IsNotExist(err) {
		t.Error("SweepStale() should have removed the stale .sql file")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("SweepStale() should not remove a fresh .dump file")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("SweepStale() should not remove files outside .dump/.sql")
	}
}
