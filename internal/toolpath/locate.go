// Package toolpath resolves the absolute path of the PostgreSQL client
// binaries (pg_dump, pg_restore, psql) required by the sync engine,
// consulting PATH first and then a platform-specific set of well-known
// install locations. Results are cached per binary name for the lifetime
// of the process.
package toolpath

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	cacheMu sync.Mutex
	cache   = map[string]string{}
)

// pgVersions are probed newest-first, matching the install layouts current
// PostgreSQL packaging uses across all three platforms.
var pgVersions = []string{"17", "16", "15", "14", "13"}

// Locate resolves the absolute path of the named binary ("pg_dump",
// "pg_restore", or "psql"), caching the result. It fails with a
// descriptive error if the binary cannot be found anywhere.
func Locate(name string) (string, error) {
	cacheMu.Lock()
	if p, ok := cache[name]; ok {
		cacheMu.Unlock()
		return p, nil
	}
	cacheMu.Unlock()

	path, err := locateUncached(name)
	if err != nil {
		return "", err
	}

	cacheMu.Lock()
	cache[name] = path
	cacheMu.Unlock()
	return path, nil
}

// ResetCache clears the cached lookups; intended for tests.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = map[string]string{}
}

func locateUncached(name string) (string, error) {
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}

	for _, candidate := range candidatePaths(name) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("could not locate required tool %q on PATH or in well-known install locations", name)
}

func candidatePaths(name string) []string {
	switch runtime.GOOS {
	case "windows":
		return windowsCandidates(name)
	case "darwin":
		return darwinCandidates(name)
	default:
		return linuxCandidates(name)
	}
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func windowsCandidates(name string) []string {
	exe := exeName(name)
	var paths []string
	roots := []string{
		`C:\Program Files\PostgreSQL`,
		`C:\Program Files (x86)\PostgreSQL`,
		`C:\PostgreSQL`,
	}
	for _, root := range roots {
		for _, v := range pgVersions {
			paths = append(paths, filepath.Join(root, v, "bin", exe))
		}
	}
	return paths
}

func darwinCandidates(name string) []string {
	exe := exeName(name)
	paths := []string{
		filepath.Join("/usr/local/bin", exe),
		filepath.Join("/opt/homebrew/bin", exe),
	}
	for _, v := range pgVersions {
		paths = append(paths, filepath.Join("/Library/PostgreSQL", v, "bin", exe))
	}
	paths = append(paths, filepath.Join("/Applications/Postgres.app/Contents/Versions/latest/bin", exe))
	for _, v := range pgVersions {
		paths = append(paths, filepath.Join("/Applications/Postgres.app/Contents/Versions", v, "bin", exe))
	}
	return paths
}

func linuxCandidates(name string) []string {
	exe := exeName(name)
	paths := []string{
		filepath.Join("/usr/bin", exe),
		filepath.Join("/usr/local/bin", exe),
	}
	for _, v := range pgVersions {
		paths = append(paths, filepath.Join("/usr/lib/postgresql", v, "bin", exe))
	}
	for _, v := range pgVersions {
		paths = append(paths, filepath.Join("/usr/pgsql-"+v, "bin", exe))
	}
	for _, v := range pgVersions {
		paths = append(paths, filepath.Join("/opt/postgresql", v, "bin", exe))
	}
	return paths
}

// RequiredTools lists the three external programs the engine needs,
// checked together during orchestrator pre-flight.
var RequiredTools = []string{"pg_dump", "pg_restore", "psql"}

// CheckAll resolves every required tool, returning a single aggregated
// error naming every missing binary (mirroring config.Validate's
// aggregation style) rather than failing on the first miss.
func CheckAll() error {
	var missing []string
	for _, t := range RequiredTools {
		if _, err := Locate(t); err != nil {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("required external tools not found: %v", missing)
}
