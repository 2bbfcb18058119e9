package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jfoltran/dbsync/internal/config"
	"github.com/jfoltran/dbsync/internal/orchestrator"
)

func TestScheduler_StartStop(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{SourceURL: "postgres://u:p@localhost/db", TargetURL: "postgres://u:p@localhost/db2"}, nil)

	var calls int32
	sched := New(engine, 10*time.Millisecond, func(string) { atomic.AddInt32(&calls, 1) })

	sched.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	sched.Stop()

	// Stop must return promptly and be idempotent.
	sched.Stop()
}

func TestScheduler_StartIsIdempotentWhileRunning(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{}, nil)
	sched := New(engine, time.Hour, nil)

	sched.Start(context.Background())
	sched.Start(context.Background()) // should be a no-op, not a second loop
	sched.Stop()
}

func TestScheduler_TriggerNotActiveBeforeStart(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{}, nil)
	sched := New(engine, time.Hour, nil)

	if _, err := sched.Trigger(context.Background()); err != ErrNotActive {
		t.Errorf("Trigger() error = %v, want ErrNotActive", err)
	}
}

func TestScheduler_TriggerDelegatesToSyncNowWhileActive(t *testing.T) {
	engine := orchestrator.New(config.SyncConfig{SourceURL: "postgres://u:p@localhost/db", TargetURL: "postgres://u:p@localhost/db2"}, nil)
	sched := New(engine, time.Hour, nil)

	sched.Start(context.Background())
	defer sched.Stop()

	// The engine has no reachable database, so Trigger's delegated SyncNow
	// call fails (missing tools, a connection error, or ErrAlreadyRunning
	// while the first scheduled pass is still in flight), never with
	// ErrNotActive.
	if _, err := sched.Trigger(context.Background()); err == ErrNotActive {
		t.Error("Trigger() returned ErrNotActive while scheduler is running")
	}
}
