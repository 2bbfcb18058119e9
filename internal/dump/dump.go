// Package dump produces per-table, data-only, custom-format PostgreSQL
// dumps using the pg_dump client utility.
package dump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jfoltran/dbsync/internal/config"
	"github.com/jfoltran/dbsync/internal/procexec"
	"github.com/jfoltran/dbsync/internal/toolpath"
	"github.com/jfoltran/dbsync/pkg/pgident"
)

// staleAge is how long a leftover dump/restore temp file survives before a
// housekeeping sweep removes it. Anything still there past this age is a
// crash-orphaned artifact from a run that never reached its own Cleanup.
const staleAge = 24 * time.Hour

// Deadline bounds a single pg_dump invocation.
const Deadline = 5 * time.Minute

// minValidSize is the floor below which a dump's output file is treated as
// empty (the table produced no data, or pg_dump failed silently).
const minValidSize = 100

// Artifact describes a produced dump file.
type Artifact struct {
	Table string
	Path  string
}

// Produce invokes pg_dump for table, writing a unique temp file under
// tempRoot, and validates the result is non-empty.
func Produce(ctx context.Context, params config.ConnectionParams, tempRoot, table string) (Artifact, error) {
	if err := pgident.Validate(table); err != nil {
		return Artifact{}, err
	}

	pgDump, err := toolpath.Locate("pg_dump")
	if err != nil {
		return Artifact{}, fmt.Errorf("locate pg_dump: %w", err)
	}

	if err := os.MkdirAll(tempRoot, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create temp root: %w", err)
	}

	path := filepath.Join(tempRoot, fmt.Sprintf("%s_%d.dump", table, epochMillis()))

	args := []string{
		"--format=custom",
		"--data-only",
		"--no-owner",
		"--no-privileges",
		"--table=" + table,
		"--file=" + path,
		"--host=" + params.Host,
		"--port=" + fmt.Sprint(params.Port),
		"--username=" + params.User,
		params.Database,
	}
	env := dumpEnv(params)

	if _, err := procexec.Run(ctx, Deadline, pgDump, args, env); err != nil {
		_ = os.Remove(path)
		return Artifact{}, fmt.Errorf("pg_dump %s: %w", table, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat dump output for %s: %w", table, err)
	}
	if info.Size() <= minValidSize {
		_ = os.Remove(path)
		return Artifact{}, fmt.Errorf("dump of %s produced an empty file (%d bytes)", table, info.Size())
	}

	return Artifact{Table: table, Path: path}, nil
}

// dumpEnv builds the environment for the child process: PGPASSWORD,
// PGSSLMODE derived from the SSL policy, plus the inherited PATH.
func dumpEnv(params config.ConnectionParams) []string {
	sslmode := "prefer"
	if params.SSLEnabled {
		sslmode = "require"
	}
	env := append(os.Environ(),
		"PGPASSWORD="+params.Password,
		"PGSSLMODE="+sslmode,
	)
	return env
}

// epochMillis is defined as a var so tests can substitute a fixed value
// without depending on wall-clock time.
var epochMillis = func() int64 { return time.Now().UnixMilli() }

// Cleanup removes artifact's file if it still exists; safe to call
// multiple times on every exit path, per the temp-file invariant.
func Cleanup(a Artifact) {
	if a.Path != "" {
		_ = os.Remove(a.Path)
	}
}

// SweepStale deletes .dump and .sql files under tempRoot older than
// staleAge, catching artifacts a crashed or killed prior run never got to
// clean up itself. It is best-effort: a file it can't stat or remove is
// skipped rather than treated as an error.
func SweepStale(tempRoot string, log func(string)) {
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-staleAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".dump" && ext != ".sql" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(tempRoot, entry.Name())
		if err := os.Remove(path); err == nil && log != nil {
			log(fmt.Sprintf("removed stale temp file %q (older than %s)", path, staleAge))
		}
	}
}
