// Package schema discovers the tables, primary keys, and column sets that
// the synchronization engine needs: which public base tables exist on
// both source and target, what each table's primary key and row count
// are, and which columns are common to both sides.
package schema

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfoltran/dbsync/internal/synclog"
)

var validTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Metadata describes one table as needed by the dump/restore/sequence
// pipeline.
type Metadata struct {
	PrimaryKey   string
	HasUpdatedAt bool
	RowCount     int64
}

// Inspector enumerates and describes tables shared by source and target.
type Inspector struct {
	source *pgxpool.Pool
	target *pgxpool.Pool
	log    synclog.Sink
}

// New creates an Inspector bound to the given source/target pools.
func New(source, target *pgxpool.Pool, log synclog.Sink) *Inspector {
	return &Inspector{source: source, target: target, log: log}
}

// ListTables returns base tables in the public schema that exist on both
// source and target, in the order returned by the source. Table names
// that don't match the identifier pattern are dropped with a warning;
// tables missing on the target are skipped with a warning.
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.source.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list source tables: %w", err)
	}
	defer rows.Close()

	var sourceTables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if !validTableName.MatchString(name) {
			i.warn(fmt.Sprintf("skipping source table %q: name does not match identifier pattern", name))
			continue
		}
		sourceTables = append(sourceTables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	targetSet, err := i.targetTableSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("list target tables: %w", err)
	}

	var result []string
	for _, t := range sourceTables {
		if _, ok := targetSet[t]; !ok {
			i.warn(fmt.Sprintf("skipping table %q: not present on target", t))
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

// TargetTables returns every base table in the target's public schema,
// regardless of whether it also exists on the source. Used to scope the
// trigger-disable envelope, which must quiesce the whole target schema
// during a run, not just the tables this run will touch.
func (i *Inspector) TargetTables(ctx context.Context) ([]string, error) {
	set, err := i.targetTableSet(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(set))
	for t := range set {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables, nil
}

func (i *Inspector) targetTableSet(ctx context.Context) (map[string]struct{}, error) {
	rows, err := i.target.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = struct{}{}
	}
	return set, rows.Err()
}

// Metadata returns primary key, updated_at hint, and row count for table,
// probed against the source.
func (i *Inspector) Metadata(ctx context.Context, table string) (Metadata, error) {
	var md Metadata

	const pkQuery = `
		SELECT a.attname
		FROM pg_index idx
		JOIN pg_attribute a ON a.attrelid = idx.indrelid AND a.attnum = ANY(idx.indkey)
		WHERE idx.indrelid = quote_ident($1)::regclass AND idx.indisprimary
		ORDER BY array_position(idx.indkey, a.attnum)
		LIMIT 1`

	err := i.source.QueryRow(ctx, pkQuery, table).Scan(&md.PrimaryKey)
	if err != nil {
		md.PrimaryKey = "id"
		i.warn(fmt.Sprintf("table %q has no primary key; defaulting to %q", table, md.PrimaryKey))
	}

	const hasUpdatedAtQuery = `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1 AND column_name = 'updated_at'
		)`
	if err := i.source.QueryRow(ctx, hasUpdatedAtQuery, table).Scan(&md.HasUpdatedAt); err != nil {
		return md, fmt.Errorf("probe updated_at for %q: %w", table, err)
	}

	const rowCountQuery = `SELECT COALESCE(n_live_tup, 0) FROM pg_stat_user_tables WHERE relname = $1`
	if err := i.source.QueryRow(ctx, rowCountQuery, table).Scan(&md.RowCount); err != nil {
		md.RowCount = 0
	}

	return md, nil
}

// CommonColumns returns the ordered list of column names present on both
// source and target for table, preserving the source's ordinal_position.
// Columns unique to one side are logged, not returned.
func (i *Inspector) CommonColumns(ctx context.Context, table string) ([]string, error) {
	sourceCols, err := i.columnsOf(ctx, i.source, table)
	if err != nil {
		return nil, fmt.Errorf("source columns for %q: %w", table, err)
	}
	targetCols, err := i.columnsOf(ctx, i.target, table)
	if err != nil {
		return nil, fmt.Errorf("target columns for %q: %w", table, err)
	}

	targetSet := make(map[string]struct{}, len(targetCols))
	for _, c := range targetCols {
		targetSet[c] = struct{}{}
	}
	sourceSet := make(map[string]struct{}, len(sourceCols))
	for _, c := range sourceCols {
		sourceSet[c] = struct{}{}
	}

	var common []string
	var sourceOnly []string
	for _, c := range sourceCols {
		if _, ok := targetSet[c]; ok {
			common = append(common, c)
		} else {
			sourceOnly = append(sourceOnly, c)
		}
	}
	var targetOnly []string
	for _, c := range targetCols {
		if _, ok := sourceSet[c]; !ok {
			targetOnly = append(targetOnly, c)
		}
	}

	if len(sourceOnly) > 0 {
		i.warn(fmt.Sprintf("table %q: source columns %v will be ignored", table, sourceOnly))
	}
	if len(targetOnly) > 0 {
		i.warn(fmt.Sprintf("table %q: target columns %v will be left unfilled", table, targetOnly))
	}

	return common, nil
}

func (i *Inspector) columnsOf(ctx context.Context, pool *pgxpool.Pool, table string) ([]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT column_name FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (i *Inspector) warn(msg string) {
	if i.log != nil {
		i.log("WARN " + msg)
	}
}
