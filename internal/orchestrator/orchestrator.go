// Package orchestrator drives a single end-to-end synchronization attempt:
// it inspects schema, orders tables by foreign-key dependency, and runs
// dump, restore, and sequence reconciliation for every table while a
// target-side trigger-disable envelope is in effect.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/jfoltran/dbsync/internal/config"
	"github.com/jfoltran/dbsync/internal/dbconn"
	"github.com/jfoltran/dbsync/internal/dump"
	"github.com/jfoltran/dbsync/internal/planner"
	"github.com/jfoltran/dbsync/internal/restore"
	"github.com/jfoltran/dbsync/internal/schema"
	"github.com/jfoltran/dbsync/internal/sequence"
	"github.com/jfoltran/dbsync/internal/synclog"
	"github.com/jfoltran/dbsync/internal/toolpath"
)

// Status is the coarse lifecycle state of a sync attempt.
type Status int

const (
	StatusIdle Status = iota
	StatusStarting
	StatusProcessing
	StatusCompleted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// ErrAlreadyRunning is returned by SyncNow when a prior attempt on the
// same Engine has not yet finished.
var ErrAlreadyRunning = errors.New("a sync attempt is already running")

// interBatchPause separates one depth level's batch of table jobs from
// the next, giving the target a brief moment to settle before the next
// wave of connections lands.
const interBatchPause = time.Second

// recentResultsCap bounds how many completed TableResults ride along in a
// ProgressInfo snapshot, enough for a TUI or progress bridge to show a
// recent-activity panel without the snapshot growing with the run.
const recentResultsCap = 8

// ProgressInfo is a point-in-time snapshot of an in-flight or just
// finished run, safe to copy and hand to a TUI or progress bridge.
type ProgressInfo struct {
	Status        Status
	Completed     int
	Total         int
	CurrentTable  string
	StartedAt     time.Time
	Err           error
	RecentResults []TableResult
}

// Percent returns the run's completion percentage, 0 when Total is 0.
func (p ProgressInfo) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Completed * 100 / p.Total
}

// progressInfoWire mirrors ProgressInfo for JSON transport, since the
// error interface in Err doesn't round-trip through encoding/json on its
// own (it marshals to an empty object and fails to unmarshal at all).
type progressInfoWire struct {
	Status        Status
	Completed     int
	Total         int
	CurrentTable  string
	StartedAt     time.Time
	Err           string
	RecentResults []TableResult
}

// MarshalJSON renders Err as a plain string, empty when nil.
func (p ProgressInfo) MarshalJSON() ([]byte, error) {
	w := progressInfoWire{
		Status:        p.Status,
		Completed:     p.Completed,
		Total:         p.Total,
		CurrentTable:  p.CurrentTable,
		StartedAt:     p.StartedAt,
		RecentResults: p.RecentResults,
	}
	if p.Err != nil {
		w.Err = p.Err.Error()
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON, rehydrating Err from a
// plain string.
func (p *ProgressInfo) UnmarshalJSON(data []byte) error {
	var w progressInfoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = ProgressInfo{
		Status:        w.Status,
		Completed:     w.Completed,
		Total:         w.Total,
		CurrentTable:  w.CurrentTable,
		StartedAt:     w.StartedAt,
		RecentResults: w.RecentResults,
	}
	if w.Err != "" {
		p.Err = errors.New(w.Err)
	}
	return nil
}

// TableResult records the outcome of synchronizing a single table.
type TableResult struct {
	Table    string
	Outcome  restore.Outcome
	Err      error
	Duration time.Duration
}

type tableResultWire struct {
	Table    string
	Outcome  restore.Outcome
	Err      string
	Duration time.Duration
}

// MarshalJSON renders Err as a plain string, empty when nil.
func (r TableResult) MarshalJSON() ([]byte, error) {
	w := tableResultWire{Table: r.Table, Outcome: r.Outcome, Duration: r.Duration}
	if r.Err != nil {
		w.Err = r.Err.Error()
	}
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON, rehydrating Err from a
// plain string.
func (r *TableResult) UnmarshalJSON(data []byte) error {
	var w tableResultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = TableResult{Table: w.Table, Outcome: w.Outcome, Duration: w.Duration}
	if w.Err != "" {
		r.Err = errors.New(w.Err)
	}
	return nil
}

// Summary is the result of one complete SyncNow call.
type Summary struct {
	Successful int
	Total      int
	Duration   time.Duration
	Results    []TableResult
}

// Engine owns the configuration for repeated sync attempts and the
// progress snapshot external observers read.
type Engine struct {
	cfg config.SyncConfig
	log *synclog.Logger

	mu        sync.Mutex
	running   bool
	progress  ProgressInfo
	observers []func(string)
}

// AddObserver registers fn to receive every message also sent to the
// engine's own log sink, letting a TUI or progress bridge mirror the run's
// log stream without owning the logger itself.
func (e *Engine) AddObserver(fn func(string)) {
	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.mu.Unlock()
}

// New builds an Engine over cfg, logging through log.
func New(cfg config.SyncConfig, log *synclog.Logger) *Engine {
	e := &Engine{cfg: cfg, log: log}
	if log != nil {
		log.SetProgressPrefixer(func() string {
			e.mu.Lock()
			running, p := e.running, e.progress
			e.mu.Unlock()
			if !running {
				return ""
			}
			return fmt.Sprintf("[%d%% - %d/%d]", p.Percent(), p.Completed, p.Total)
		})
	}
	return e
}

// Progress returns the current progress snapshot.
func (e *Engine) Progress() ProgressInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

func (e *Engine) setProgress(p ProgressInfo) {
	e.mu.Lock()
	e.progress = p
	e.mu.Unlock()
}

// SyncNow runs one synchronization attempt end to end. It refuses to run
// concurrently with another attempt on the same Engine; call it from a
// scheduler that already serializes runs, or expect ErrAlreadyRunning.
func (e *Engine) SyncNow(ctx context.Context) (Summary, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return Summary{}, ErrAlreadyRunning
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	start := time.Now()
	e.setProgress(ProgressInfo{Status: StatusStarting, StartedAt: start})
	sink := e.sink()

	summary, err := e.run(ctx, sink)
	summary.Duration = time.Since(start)

	final := ProgressInfo{
		Status:    StatusCompleted,
		Completed: summary.Successful,
		Total:     summary.Total,
		StartedAt: start,
		Err:       err,
	}
	if err != nil {
		final.Status = StatusError
	}
	e.setProgress(final)

	sink(fmt.Sprintf("sync finished: %d/%d tables in %s", summary.Successful, summary.Total, summary.Duration.Round(time.Millisecond)))
	return summary, err
}

func (e *Engine) sink() synclog.Sink {
	base := func(string) {}
	if e.log != nil {
		base = e.log.Sink()
	}
	return func(msg string) {
		base(msg)
		e.mu.Lock()
		observers := e.observers
		e.mu.Unlock()
		for _, fn := range observers {
			fn(msg)
		}
	}
}

func (e *Engine) run(ctx context.Context, sink synclog.Sink) (Summary, error) {
	if err := e.cfg.Validate(); err != nil {
		return Summary{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := toolpath.CheckAll(); err != nil {
		return Summary{}, err
	}
	dump.SweepStale(e.cfg.TempRoot, func(m string) { sink("INFO " + m) })

	sourceParams, err := e.cfg.SourceConnectionParams()
	if err != nil {
		return Summary{}, err
	}
	targetParams, err := e.cfg.TargetConnectionParams()
	if err != nil {
		return Summary{}, err
	}

	sourcePool, err := dbconn.OpenPool(ctx, sourceParams)
	if err != nil {
		return Summary{}, fmt.Errorf("connect to source: %w", err)
	}
	defer sourcePool.Close()

	targetPool, err := dbconn.OpenPool(ctx, targetParams)
	if err != nil {
		return Summary{}, fmt.Errorf("connect to target: %w", err)
	}
	defer targetPool.Close()

	inspector := schema.New(sourcePool, targetPool, sink)
	tables, err := inspector.ListTables(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		return Summary{Total: 0}, nil
	}

	orderedNames, deps, err := planner.Plan(ctx, sourcePool, tables, sink)
	if err != nil {
		return Summary{}, fmt.Errorf("plan table order: %w", err)
	}
	levels := levelsOf(orderedNames, deps)

	exclude := e.cfg.ExcludeSet()
	dispatchable := make([]string, 0, len(orderedNames))
	for _, t := range orderedNames {
		if _, skip := exclude[t]; !skip {
			dispatchable = append(dispatchable, t)
		}
	}

	quiescedTables, err := inspector.TargetTables(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list target tables: %w", err)
	}

	disableTriggers(ctx, targetPool, quiescedTables, func(m string) { sink("WARN " + m) })
	defer enableTriggers(context.Background(), targetPool, quiescedTables, func(m string) { sink("WARN " + m) })

	start := time.Now()
	e.setProgress(ProgressInfo{Status: StatusProcessing, Total: len(dispatchable), StartedAt: start})

	var (
		mu        sync.Mutex
		completed int
		results   []TableResult
	)

	for levelIdx, level := range levels {
		var batch []string
		for _, t := range level {
			if _, skip := exclude[t]; skip {
				sink(fmt.Sprintf("skipping excluded table %q", t))
				continue
			}
			batch = append(batch, t)
		}
		if len(batch) == 0 {
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.MaxParallelTables)

		for _, table := range batch {
			table := table
			g.Go(func() error {
				res := e.syncTable(gctx, inspector, sourcePool, targetPool, sourceParams, targetParams, table, sink)

				mu.Lock()
				completed++
				results = append(results, res)
				recent := results
				if len(recent) > recentResultsCap {
					recent = recent[len(recent)-recentResultsCap:]
				}
				snapshot := ProgressInfo{
					Status:        StatusProcessing,
					Completed:     completed,
					Total:         len(dispatchable),
					CurrentTable:  table,
					StartedAt:     start,
					RecentResults: append([]TableResult(nil), recent...),
				}
				mu.Unlock()
				e.setProgress(snapshot)
				return nil
			})
		}
		_ = g.Wait()

		if levelIdx < len(levels)-1 {
			select {
			case <-ctx.Done():
				return summarize(results, len(dispatchable)), ctx.Err()
			case <-time.After(interBatchPause):
			}
		}
	}

	return summarize(results, len(dispatchable)), nil
}

func summarize(results []TableResult, total int) Summary {
	s := Summary{Total: total, Results: results}
	for _, r := range results {
		if r.Err == nil {
			s.Successful++
		}
	}
	return s
}

// syncTable runs the per-table pipeline: dump from source, restore onto
// target (direct, then staged on failure), then reconcile sequences. A
// metadata, dump or restore failure is captured in the result rather than
// propagated, so one bad table never aborts the rest of its batch;
// sequence reconciliation problems are only logged.
func (e *Engine) syncTable(
	ctx context.Context,
	inspector *schema.Inspector,
	sourcePool, targetPool *pgxpool.Pool,
	sourceParams, targetParams config.ConnectionParams,
	table string,
	sink synclog.Sink,
) TableResult {
	start := time.Now()
	result := TableResult{Table: table}

	md, err := inspector.Metadata(ctx, table)
	if err != nil {
		result.Err = fmt.Errorf("metadata: %w", err)
		return finish(result, start)
	}

	commonCols, err := inspector.CommonColumns(ctx, table)
	if err != nil {
		result.Err = fmt.Errorf("common columns: %w", err)
		return finish(result, start)
	}
	if len(commonCols) == 0 {
		result.Err = fmt.Errorf("no common columns with source")
		return finish(result, start)
	}

	artifact, err := dump.Produce(ctx, sourceParams, e.cfg.TempRoot, table)
	if err != nil {
		result.Err = fmt.Errorf("dump: %w", err)
		return finish(result, start)
	}
	defer dump.Cleanup(artifact)

	outcome, err := restore.Execute(ctx, targetPool, targetParams, table, md.PrimaryKey, commonCols, artifact.Path, e.cfg.TempRoot, sink)
	result.Outcome = outcome
	if err != nil {
		result.Err = fmt.Errorf("restore: %w", err)
		return finish(result, start)
	}

	seqCols, err := sequence.SequenceBackedColumns(ctx, targetPool, table, commonCols)
	if err != nil {
		sink(fmt.Sprintf("WARN %q: could not determine sequence-backed columns: %v", table, err))
	} else if len(seqCols) > 0 {
		sequence.Reconcile(ctx, sourcePool, targetPool, table, seqCols, sink)
	}

	sink(fmt.Sprintf("%q restored via %s load (%d common columns)", table, outcome, len(commonCols)))
	return finish(result, start)
}

func finish(r TableResult, start time.Time) TableResult {
	r.Duration = time.Since(start)
	return r
}
