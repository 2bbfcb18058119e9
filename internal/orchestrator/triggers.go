package orchestrator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfoltran/dbsync/pkg/pgident"
)

// disableTriggers turns off every user trigger on each of tables, so that
// restoring child rows ahead of their parents (or a sequence reconciler's
// writes) never fires application-level constraint or audit triggers
// mid-run. It is best-effort per table: one table's failure is logged and
// does not stop the others.
func disableTriggers(ctx context.Context, target *pgxpool.Pool, tables []string, warn func(string)) {
	for _, t := range tables {
		_, err := target.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s DISABLE TRIGGER ALL`, pgident.Quote(t)))
		if err != nil && warn != nil {
			warn(fmt.Sprintf("could not disable triggers on %q: %v", t, err))
		}
	}
}

// enableTriggers is disableTriggers's mirror, always run on the way out of
// a sync attempt regardless of how it ended.
func enableTriggers(ctx context.Context, target *pgxpool.Pool, tables []string, warn func(string)) {
	for _, t := range tables {
		_, err := target.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s ENABLE TRIGGER ALL`, pgident.Quote(t)))
		if err != nil && warn != nil {
			warn(fmt.Sprintf("could not re-enable triggers on %q: %v", t, err))
		}
	}
}
