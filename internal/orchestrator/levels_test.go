package orchestrator

import (
	"testing"

	"github.com/jfoltran/dbsync/internal/planner"
)

func TestLevelsOf_GroupsByDepth(t *testing.T) {
	deps := []planner.TableDependency{
		{Name: "categorias", Depth: 0},
		{Name: "clientes", Depth: 0},
		{Name: "produtos", Depth: 1},
		{Name: "pedidos", Depth: 2},
	}
	levels := levelsOf([]string{"categorias", "clientes", "produtos", "pedidos"}, deps)

	if len(levels) != 3 {
		t.Fatalf("levelsOf() = %d levels, want 3", len(levels))
	}
	if len(levels[0]) != 2 {
		t.Errorf("level 0 = %v, want 2 tables", levels[0])
	}
	if levels[1][0] != "produtos" {
		t.Errorf("level 1 = %v, want [produtos]", levels[1])
	}
	if levels[2][0] != "pedidos" {
		t.Errorf("level 2 = %v, want [pedidos]", levels[2])
	}
}

func TestLevelsOf_FallbackWhenNoDeps(t *testing.T) {
	names := []string{"a", "b", "c"}
	levels := levelsOf(names, nil)
	if len(levels) != 1 || len(levels[0]) != 3 {
		t.Fatalf("levelsOf() with no deps = %v, want a single level with all tables", levels)
	}
}
