package pipeline

import (
	"strings"
	"testing"
)

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func assertOrdered(t *testing.T, order []string, deps map[string][]string) {
	t.Helper()
	for name, nameDeps := range deps {
		for _, dep := range nameDeps {
			if indexOf(order, dep) > indexOf(order, name) {
				t.Fatalf("%q must come after its dependency %q, got order %v", name, dep, order)
			}
		}
	}
}

func permutations(names []string) [][]string {
	if len(names) <= 1 {
		return [][]string{append([]string(nil), names...)}
	}
	var result [][]string
	for i := range names {
		rest := make([]string, 0, len(names)-1)
		rest = append(rest, names[:i]...)
		rest = append(rest, names[i+1:]...)
		for _, perm := range permutations(rest) {
			result = append(result, append([]string{names[i]}, perm...))
		}
	}
	return result
}

func TestSortTopologicallyRespectsDependenciesForAllPermutations(t *testing.T) {
	deps := map[string][]string{
		"b": {"a"},
		"c": {"b"},
		"d": {"b"},
	}
	for _, perm := range permutations([]string{"a", "b", "c", "d"}) {
		order, err := sortTopologically(perm, deps)
		if err != nil {
			t.Fatalf("unexpected error for input %v: %v", perm, err)
		}
		if len(order) != 4 {
			t.Fatalf("expected 4 names, got %v", order)
		}
		assertOrdered(t, order, deps)
	}
}

func TestSortTopologicallyKeepsInputOrderForUnconstrainedNames(t *testing.T) {
	order, err := sortTopologically([]string{"x", "y", "z"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order[0] != "x" || order[1] != "y" || order[2] != "z" {
		t.Fatalf("expected input order preserved, got %v", order)
	}
}

func TestSortTopologicallyRejectsCycle(t *testing.T) {
	deps := map[string][]string{
		"a": {"c"},
		"b": {"a"},
		"c": {"b"},
	}
	_, err := sortTopologically([]string{"a", "b", "c"}, deps)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle in error, got %q", err)
	}
}

func TestSortTopologicallyRejectsUnknownDependency(t *testing.T) {
	deps := map[string][]string{"a": {"ghost"}}
	_, err := sortTopologically([]string{"a"}, deps)
	if err == nil {
		t.Fatal("expected error for unknown dependency, got nil")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected unknown name in error, got %q", err)
	}
}

func TestSortTopologicallyRejectsDuplicateNames(t *testing.T) {
	_, err := sortTopologically([]string{"a", "a"}, nil)
	if err == nil {
		t.Fatal("expected error for duplicate name, got nil")
	}
}
