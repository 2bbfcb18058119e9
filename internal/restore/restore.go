// Package restore applies a per-table dump produced by package dump onto
// the target database, falling back from a direct COPY load to a staged
// UPSERT when the direct load cannot proceed cleanly.
package restore

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfoltran/dbsync/internal/config"
	"github.com/jfoltran/dbsync/internal/procexec"
	"github.com/jfoltran/dbsync/internal/synclog"
	"github.com/jfoltran/dbsync/internal/toolpath"
	"github.com/jfoltran/dbsync/pkg/pgident"
)

// Deadline bounds each of the restore stage's external tool invocations.
const Deadline = 5 * time.Minute

// maxBatchRows caps how many rows a single staged insert statement carries,
// in one staged insert statement.
const maxBatchRows = 1000

// Outcome reports which of the two restore strategies actually landed the
// table's data, so callers can log and account for it without inspecting
// error strings.
type Outcome int

const (
	// OutcomeDirect means the pg_restore/psql direct load succeeded.
	OutcomeDirect Outcome = iota
	// OutcomeStaged means the direct load failed and the staged
	// temp-table UPSERT path carried the data instead.
	OutcomeStaged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDirect:
		return "direct"
	case OutcomeStaged:
		return "staged"
	default:
		return "unknown"
	}
}

// Execute restores dumpPath's contents into table on the target, trying
// the direct load first and falling back to the staged UPSERT path on
// failure. commonCols is the column intersection between source and
// target, computed by package schema; pk is table's primary key column.
func Execute(
	ctx context.Context,
	target *pgxpool.Pool,
	targetParams config.ConnectionParams,
	table, pk string,
	commonCols []string,
	dumpPath, tempRoot string,
	log synclog.Sink,
) (Outcome, error) {
	if err := pgident.Validate(table); err != nil {
		return OutcomeDirect, err
	}

	sqlPath, err := convertToSQL(ctx, dumpPath, tempRoot, table)
	if err != nil {
		return OutcomeDirect, fmt.Errorf("convert dump to sql: %w", err)
	}
	defer os.Remove(sqlPath)

	if err := scrubStatements(sqlPath); err != nil {
		return OutcomeDirect, fmt.Errorf("scrub sql: %w", err)
	}

	directErr := loadDirect(ctx, targetParams, sqlPath)
	if directErr == nil {
		return OutcomeDirect, nil
	}
	if log != nil {
		log(fmt.Sprintf("WARN direct load of %q failed (%v); falling back to staged upsert", table, directErr))
	}

	if err := loadStaged(ctx, target, table, pk, commonCols, sqlPath, log); err != nil {
		return OutcomeStaged, fmt.Errorf("staged upsert of %q: %w", table, err)
	}
	return OutcomeStaged, nil
}

// convertToSQL runs pg_restore against the custom-format dump, producing a
// plain-SQL file the direct-load stage can scrub and feed to psql.
func convertToSQL(ctx context.Context, dumpPath, tempRoot, table string) (string, error) {
	pgRestore, err := toolpath.Locate("pg_restore")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(tempRoot, 0o755); err != nil {
		return "", fmt.Errorf("create temp root: %w", err)
	}
	sqlPath := filepath.Join(tempRoot, table+".sql")

	args := []string{
		"--data-only",
		"--no-owner",
		"--no-privileges",
		"--file=" + sqlPath,
		dumpPath,
	}
	if _, err := procexec.Run(ctx, Deadline, pgRestore, args, nil); err != nil {
		return "", err
	}
	return sqlPath, nil
}

// scrubStatements removes statements pg_restore emits that a plain psql
// single-transaction load either rejects or does not need.
func scrubStatements(sqlPath string) error {
	in, err := os.Open(sqlPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var kept []string
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "SET transaction_timeout") {
			continue
		}
		kept = append(kept, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	in.Close()

	return os.WriteFile(sqlPath, []byte(strings.Join(kept, "\n")+"\n"), 0o644)
}

// loadDirect runs psql --single-transaction against sqlPath and classifies
// the result by exit code and stderr content.
func loadDirect(ctx context.Context, params config.ConnectionParams, sqlPath string) error {
	psql, err := toolpath.Locate("psql")
	if err != nil {
		return err
	}

	args := []string{
		"--single-transaction",
		"--set=ON_ERROR_STOP=1",
		"--host=" + params.Host,
		"--port=" + fmt.Sprint(params.Port),
		"--username=" + params.User,
		"--dbname=" + params.Database,
		"--file=" + sqlPath,
	}
	res, err := procexec.Run(ctx, Deadline, psql, args, psqlEnv(params))
	if err != nil {
		return err
	}
	if strings.Contains(res.Stderr, "ERROR:") || strings.Contains(strings.ToLower(res.Stderr), "duplicate key") {
		return fmt.Errorf("psql reported errors: %s", firstLine(res.Stderr))
	}
	return nil
}

// psqlEnv builds the environment for the psql child process: PGPASSWORD and
// PGSSLMODE derived from the same SSL policy as the dump stage, plus the
// inherited PATH.
func psqlEnv(params config.ConnectionParams) []string {
	sslmode := "prefer"
	if params.SSLEnabled {
		sslmode = "require"
	}
	return append(os.Environ(),
		"PGPASSWORD="+params.Password,
		"PGSSLMODE="+sslmode,
	)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// loadStaged extracts the COPY block from sqlPath, loads it into a
// temporary table, and upserts it into table.
func loadStaged(ctx context.Context, target *pgxpool.Pool, table, pk string, commonCols []string, sqlPath string, log synclog.Sink) error {
	if !containsColumn(commonCols, pk) {
		return fmt.Errorf("primary key %q is not among the common columns; skipping staged upsert", pk)
	}

	raw, err := os.ReadFile(sqlPath)
	if err != nil {
		return err
	}
	block, err := extractCopyBlock(string(raw))
	if err != nil {
		return fmt.Errorf("no data to stage: %w", err)
	}

	conn, err := target.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tempTable := "tmp_" + table + "_stage"
	quotedCommon := pgident.QuoteList(commonCols)

	_, err = conn.Exec(ctx, fmt.Sprintf(
		`CREATE TEMP TABLE %s AS SELECT %s FROM %s WHERE false`,
		pgident.Quote(tempTable), quotedCommon, pgident.Quote(table),
	))
	if err != nil {
		return fmt.Errorf("create temp table: %w", err)
	}
	defer conn.Exec(ctx, `DROP TABLE IF EXISTS `+pgident.Quote(tempTable))

	colIdx := copyColumnIndex(block.Columns, commonCols)

	var batch [][]any
	var rowErrors int
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := insertBatch(ctx, conn, tempTable, commonCols, batch); err != nil {
			rowErrors += len(batch)
			if log != nil {
				log(fmt.Sprintf("WARN %q: failed to stage a batch of %d rows: %v", table, len(batch), err))
			}
		}
		batch = batch[:0]
		return nil
	}

	for _, line := range block.DataLines {
		fields := splitDataLine(line)
		row := make([]any, len(commonCols))
		for i := range commonCols {
			pos := colIdx[i]
			raw, ok := fieldAt(fields, pos)
			if pos == -1 || !ok {
				row[i] = nil
				continue
			}
			val, isNull := unescapeCopyField(raw)
			if isNull {
				row[i] = nil
			} else {
				row[i] = val
			}
		}
		batch = append(batch, row)
		if len(batch) >= maxBatchRows {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if rowErrors > 0 && log != nil {
		log(fmt.Sprintf("WARN %q: %d rows failed to stage and were skipped", table, rowErrors))
	}

	return upsertFromTemp(ctx, conn, table, tempTable, pk, commonCols)
}

func containsColumn(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

// insertBatch builds one multi-row INSERT over the temp table.
func insertBatch(ctx context.Context, conn *pgxpool.Conn, tempTable string, cols []string, rows [][]any) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", pgident.Quote(tempTable), pgident.QuoteList(cols))

	args := make([]any, 0, len(rows)*len(cols))
	for r, row := range rows {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for c := range cols {
			if c > 0 {
				sb.WriteByte(',')
			}
			args = append(args, row[c])
			fmt.Fprintf(&sb, "$%d", len(args))
		}
		sb.WriteByte(')')
	}

	_, err := conn.Exec(ctx, sb.String(), args...)
	return err
}

// upsertFromTemp copies the temp table's rows into table, updating any row
// that already exists by primary key.
func upsertFromTemp(ctx context.Context, conn *pgxpool.Conn, table, tempTable, pk string, cols []string) error {
	quotedCols := pgident.QuoteList(cols)

	var nonPK []string
	for _, c := range cols {
		if c != pk {
			nonPK = append(nonPK, c)
		}
	}

	var conflictAction string
	if len(nonPK) == 0 {
		conflictAction = fmt.Sprintf("%s = EXCLUDED.%s", pgident.Quote(pk), pgident.Quote(pk))
	} else {
		sets := make([]string, len(nonPK))
		for i, c := range nonPK {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", pgident.Quote(c), pgident.Quote(c))
		}
		conflictAction = strings.Join(sets, ", ")
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s`,
		pgident.Quote(table), quotedCols, quotedCols, pgident.Quote(tempTable), pgident.Quote(pk), conflictAction,
	)
	_, err := conn.Exec(ctx, query)
	return err
}
