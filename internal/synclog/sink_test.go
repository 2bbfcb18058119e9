package synclog

import (
	"bufio"
	"os"
	"strings"
	"testing"
)

func TestSinkIncludesProgressPrefix(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	lg := New(w, "info")
	lg.SetProgressPrefixer(func() string { return "[50% - 2/4]" })

	sink := lg.Sink()
	sink("table users restored")
	w.Close()

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		t.Fatal("expected a log line")
	}
	line := scanner.Text()
	if !strings.Contains(line, "[50% - 2/4]") {
		t.Errorf("log line %q missing progress prefix", line)
	}
	if !strings.Contains(line, "table users restored") {
		t.Errorf("log line %q missing message", line)
	}
}

func TestSinkWithoutActiveRun(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	lg := New(w, "info")
	sink := lg.Sink()
	sink("no run active")
	w.Close()

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		t.Fatal("expected a log line")
	}
	line := scanner.Text()
	if strings.Contains(line, "[") {
		t.Errorf("log line %q should not contain a progress prefix", line)
	}
}
