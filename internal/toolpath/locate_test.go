package toolpath

import "testing"

func TestLocate_FindsOnPath(t *testing.T) {
	ResetCache()
	path, err := Locate("ls")
	if err != nil {
		t.Fatalf("Locate(ls) unexpected error: %v", err)
	}
	if path == "" {
		t.Error("Locate(ls) returned empty path")
	}
}

func TestLocate_Caches(t *testing.T) {
	ResetCache()
	first, err := Locate("ls")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Locate("ls")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected cached result to match: %q != %q", first, second)
	}
}

func TestLocate_NotFound(t *testing.T) {
	ResetCache()
	_, err := Locate("definitely-not-a-real-postgres-tool")
	if err == nil {
		t.Fatal("Locate() expected error for missing binary")
	}
}

func TestCandidatePaths_NonEmpty(t *testing.T) {
	for _, goos := range []string{"windows", "darwin", "linux"} {
		var paths []string
		switch goos {
		case "windows":
			paths = windowsCandidates("pg_dump")
		case "darwin":
			paths = darwinCandidates("pg_dump")
		default:
			paths = linuxCandidates("pg_dump")
		}
		if len(paths) == 0 {
			t.Errorf("%s candidatePaths returned no entries", goos)
		}
	}
}
