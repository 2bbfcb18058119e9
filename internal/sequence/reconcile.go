// Package sequence reconciles a table's identity/serial sequences after a
// restore, so that the next inserted row on the target does not collide
// with a value already carried over from the source.
package sequence

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfoltran/dbsync/internal/synclog"
	"github.com/jfoltran/dbsync/pkg/pgident"
)

// defaultExpr matches a column_default of the form nextval('seq'::regclass)
// for tables where pg_get_serial_sequence comes back empty (a default set
// manually rather than through a serial/identity column).
var defaultExpr = regexp.MustCompile(`nextval\('([^']+)'`)

// Reconcile advances every sequence feeding table's columns on target so
// that it is at least as far ahead as both the source sequence and the
// data actually present on target, then logs (without failing the table)
// any individual column it could not reconcile.
func Reconcile(ctx context.Context, source, target *pgxpool.Pool, table string, columns []string, log synclog.Sink) {
	for _, col := range columns {
		if err := reconcileColumn(ctx, source, target, table, col); err != nil {
			if log != nil {
				log(fmt.Sprintf("WARN %q.%q: sequence reconciliation skipped: %v", table, col, err))
			}
		}
	}
}

func reconcileColumn(ctx context.Context, source, target *pgxpool.Pool, table, col string) error {
	seqName, err := sequenceFor(ctx, target, table, col)
	if err != nil {
		return err
	}
	if seqName == "" {
		return nil // column isn't sequence-backed
	}

	srcLast, srcCalled, err := readSequenceState(ctx, source, seqName)
	if err != nil {
		return fmt.Errorf("read source sequence %q: %w", seqName, err)
	}

	var targetMax int64
	maxQuery := fmt.Sprintf(`SELECT COALESCE(MAX(%s), 0) FROM %s`, pgident.Quote(col), pgident.Quote(table))
	if err := target.QueryRow(ctx, maxQuery).Scan(&targetMax); err != nil {
		return fmt.Errorf("read target max(%s): %w", col, err)
	}

	want := srcLast
	if targetMax > want {
		want = targetMax
	}

	_, err = target.Exec(ctx, `SELECT setval($1, $2, $3)`, seqName, want, srcCalled)
	if err != nil {
		return fmt.Errorf("setval(%s, %d): %w", seqName, want, err)
	}
	return nil
}

// sequenceFor resolves the sequence backing table.col on the target,
// preferring pg_get_serial_sequence and falling back to parsing
// column_default for a nextval('seq') expression.
func sequenceFor(ctx context.Context, target *pgxpool.Pool, table, col string) (string, error) {
	var seq *string
	err := target.QueryRow(ctx, `SELECT pg_get_serial_sequence($1, $2)`, table, col).Scan(&seq)
	if err != nil {
		return "", err
	}
	if seq != nil && *seq != "" {
		return *seq, nil
	}

	var def *string
	err = target.QueryRow(ctx, `
		SELECT column_default FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2`, table, col).Scan(&def)
	if err != nil {
		return "", err
	}
	if def == nil {
		return "", nil
	}
	m := defaultExpr.FindStringSubmatch(*def)
	if m == nil {
		return "", nil
	}
	return m[1], nil
}

func readSequenceState(ctx context.Context, source *pgxpool.Pool, seqName string) (lastValue int64, isCalled bool, err error) {
	row := source.QueryRow(ctx, fmt.Sprintf(`SELECT last_value, is_called FROM %s`, seqName))
	if err := row.Scan(&lastValue, &isCalled); err != nil {
		if err == pgx.ErrNoRows {
			return 0, false, fmt.Errorf("sequence has no rows")
		}
		return 0, false, err
	}
	return lastValue, isCalled, nil
}

// SequenceBackedColumns returns the subset of columns on table (queried
// against target) whose default is a sequence, so the caller can limit
// Reconcile's work to columns actually worth checking.
func SequenceBackedColumns(ctx context.Context, target *pgxpool.Pool, table string, columns []string) ([]string, error) {
	var out []string
	for _, col := range columns {
		seq, err := sequenceFor(ctx, target, table, col)
		if err != nil {
			return nil, fmt.Errorf("resolve sequence for %s.%s: %w", table, col, err)
		}
		if seq != "" {
			out = append(out, col)
		}
	}
	return out, nil
}
