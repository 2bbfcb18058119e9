package planner

import "testing"

func TestComputeDepths_Linear(t *testing.T) {
	deps := map[string]*TableDependency{
		"categorias": {Name: "categorias", DependsOn: map[string]struct{}{}},
		"produtos":   {Name: "produtos", DependsOn: map[string]struct{}{"categorias": {}}},
		"itens":      {Name: "itens", DependsOn: map[string]struct{}{"produtos": {}}},
	}
	computeDepths(deps, nil)

	if deps["categorias"].Depth != 0 {
		t.Errorf("categorias depth = %d, want 0", deps["categorias"].Depth)
	}
	if deps["produtos"].Depth != 1 {
		t.Errorf("produtos depth = %d, want 1", deps["produtos"].Depth)
	}
	if deps["itens"].Depth != 2 {
		t.Errorf("itens depth = %d, want 2", deps["itens"].Depth)
	}
}

func TestComputeDepths_DiamondSharesDepth(t *testing.T) {
	deps := map[string]*TableDependency{
		"categorias": {Name: "categorias", DependsOn: map[string]struct{}{}},
		"clientes":   {Name: "clientes", DependsOn: map[string]struct{}{}},
		"produtos":   {Name: "produtos", DependsOn: map[string]struct{}{"categorias": {}}},
		"pedidos":    {Name: "pedidos", DependsOn: map[string]struct{}{"clientes": {}}},
		"itens":      {Name: "itens", DependsOn: map[string]struct{}{"produtos": {}, "pedidos": {}}},
	}
	computeDepths(deps, nil)

	if deps["produtos"].Depth != 1 || deps["pedidos"].Depth != 1 {
		t.Errorf("expected both produtos and pedidos at depth 1, got %d and %d",
			deps["produtos"].Depth, deps["pedidos"].Depth)
	}
	if deps["itens"].Depth != 2 {
		t.Errorf("itens depth = %d, want 2", deps["itens"].Depth)
	}
}

func TestComputeDepths_CycleTerminates(t *testing.T) {
	deps := map[string]*TableDependency{
		"a": {Name: "a", DependsOn: map[string]struct{}{"b": {}}},
		"b": {Name: "b", DependsOn: map[string]struct{}{"a": {}}},
	}
	var warned []string
	computeDepths(deps, func(msg string) { warned = append(warned, msg) })

	if len(warned) == 0 {
		t.Error("expected a warning about the iteration bound for a cyclic graph")
	}
}

func TestAlphabetical(t *testing.T) {
	got := alphabetical([]string{"zebra", "apple", "mango"})
	want := []string{"apple", "mango", "zebra"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("alphabetical() = %v, want %v", got, want)
		}
	}
}
