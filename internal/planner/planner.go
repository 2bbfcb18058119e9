// Package planner builds a foreign-key dependency order over the set of
// tables the engine is about to synchronize, so that parent tables are
// restored before the children that reference them.
package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfoltran/dbsync/internal/synclog"
)

// TableDependency describes one table's foreign-key dependencies and its
// computed depth. Depth is derived at plan time, not persisted.
type TableDependency struct {
	Name      string
	DependsOn map[string]struct{}
	Depth     int
}

// Plan computes a level-ordered synchronization plan for tables: an edge
// a->b exists when a declares a foreign key referencing b, restricted to
// the given table set. On any catalog query failure the plan falls back
// to alphabetical order.
func Plan(ctx context.Context, pool *pgxpool.Pool, tables []string, log synclog.Sink) ([]string, []TableDependency, error) {
	deps, err := buildDependencies(ctx, pool, tables, log)
	if err != nil {
		if log != nil {
			log(fmt.Sprintf("WARN dependency planning failed (%v); falling back to alphabetical order", err))
		}
		return alphabetical(tables), nil, nil
	}

	computeDepths(deps, log)

	ordered := make([]TableDependency, 0, len(deps))
	for _, d := range deps {
		ordered = append(ordered, *d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Depth != ordered[j].Depth {
			return ordered[i].Depth < ordered[j].Depth
		}
		return ordered[i].Name < ordered[j].Name
	})

	names := make([]string, len(ordered))
	for i, d := range ordered {
		names[i] = d.Name
	}
	return names, ordered, nil
}

func alphabetical(tables []string) []string {
	out := append([]string(nil), tables...)
	sort.Strings(out)
	return out
}

func buildDependencies(ctx context.Context, pool *pgxpool.Pool, tables []string, log synclog.Sink) (map[string]*TableDependency, error) {
	deps := make(map[string]*TableDependency, len(tables))
	inSet := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		deps[t] = &TableDependency{Name: t, DependsOn: map[string]struct{}{}}
		inSet[t] = struct{}{}
	}

	rows, err := pool.Query(ctx, `
		SELECT tc.table_name AS child, ccu.table_name AS parent
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = 'public'`)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var child, parent string
		if err := rows.Scan(&child, &parent); err != nil {
			return nil, fmt.Errorf("scan foreign key row: %w", err)
		}
		if child == parent {
			continue // self-reference
		}
		if _, ok := inSet[child]; !ok {
			continue
		}
		if _, ok := inSet[parent]; !ok {
			if log != nil {
				log(fmt.Sprintf("WARN external dependency: %q references %q, which is outside the plan", child, parent))
			}
			continue
		}
		deps[child].DependsOn[parent] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return deps, nil
}

// computeDepths relaxes depth(t) = max(0, 1 + max(depth(parent))) until a
// pass makes no change, or until 2*|tables| iterations — the bound that
// signals a cycle, which PostgreSQL foreign keys do permit. Trigger
// disabling during restore protects correctness if the bound is
// hit; the resulting order is best-effort.
func computeDepths(deps map[string]*TableDependency, log synclog.Sink) {
	limit := 2 * len(deps)
	for iter := 0; iter < limit; iter++ {
		changed := false
		for _, d := range deps {
			maxParent := -1
			for parent := range d.DependsOn {
				if deps[parent].Depth > maxParent {
					maxParent = deps[parent].Depth
				}
			}
			newDepth := 0
			if maxParent >= 0 {
				newDepth = maxParent + 1
			}
			if newDepth != d.Depth {
				d.Depth = newDepth
				changed = true
			}
		}
		if !changed {
			return
		}
	}
	if log != nil {
		log(fmt.Sprintf("WARN dependency depth computation hit its iteration bound (%d); the foreign-key graph likely contains a cycle", limit))
	}
}
