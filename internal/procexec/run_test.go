package procexec

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	res, err := Run(context.Background(), time.Second, "echo", []string{"hello"}, nil)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Run() stdout = %q", res.Stdout)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	_, err := Run(context.Background(), time.Second, "sh", []string{"-c", "echo boom >&2; exit 3"}, nil)
	if err == nil {
		t.Fatal("Run() expected error for non-zero exit")
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.Kind != KindProcessFailed {
		t.Errorf("Kind = %v, want KindProcessFailed", pe.Kind)
	}
	if pe.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", pe.ExitCode)
	}
}

func TestRun_Timeout(t *testing.T) {
	_, err := Run(context.Background(), 50*time.Millisecond, "sleep", []string{"5"}, nil)
	if err == nil {
		t.Fatal("Run() expected timeout error")
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.Kind != KindTimeout {
		t.Errorf("Kind = %v, want KindTimeout", pe.Kind)
	}
}

func TestRun_BinaryNotFound(t *testing.T) {
	_, err := Run(context.Background(), time.Second, "this-binary-does-not-exist-xyz", nil, nil)
	if err == nil {
		t.Fatal("Run() expected error for missing binary")
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.Kind != KindStartFailed {
		t.Errorf("Kind = %v, want KindStartFailed", pe.Kind)
	}
}
