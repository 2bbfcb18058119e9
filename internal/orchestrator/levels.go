package orchestrator

import (
	"sort"

	"github.com/jfoltran/dbsync/internal/planner"
)

// levelsOf groups deps by Depth, in ascending depth order, so the caller
// can process one level at a time with parents always landing before
// children. When deps is empty (the planner's alphabetical fallback
// path), names is returned as a single level instead.
func levelsOf(names []string, deps []planner.TableDependency) [][]string {
	if len(deps) == 0 {
		return [][]string{names}
	}

	byDepth := make(map[int][]string)
	maxDepth := 0
	for _, d := range deps {
		byDepth[d.Depth] = append(byDepth[d.Depth], d.Name)
		if d.Depth > maxDepth {
			maxDepth = d.Depth
		}
	}

	levels := make([][]string, 0, maxDepth+1)
	for depth := 0; depth <= maxDepth; depth++ {
		tables := byDepth[depth]
		sort.Strings(tables)
		if len(tables) > 0 {
			levels = append(levels, tables)
		}
	}
	return levels
}
