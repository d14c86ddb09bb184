package catalog

import "testing"

func TestEmpty(t *testing.T) {
	snap := Empty()
	if len(snap.ToolByName) != 0 || len(snap.ProviderByTool) != 0 || len(snap.Conflicts) != 0 {
		t.Error("Empty() should have no tools, providers, or conflicts")
	}
	if snap.HasConflict("anything") {
		t.Error("Empty() should report no conflicts")
	}
}

func TestHasConflict(t *testing.T) {
	snap := &Snapshot{Conflicts: map[string]struct{}{"search": {}}}
	if !snap.HasConflict("search") {
		t.Error("expected HasConflict(\"search\") to be true")
	}
	if snap.HasConflict("fetch") {
		t.Error("expected HasConflict(\"fetch\") to be false")
	}
}

func TestOwningProviders(t *testing.T) {
	snap := &Snapshot{
		Tools: []Tool{
			{Name: "alpha:search", Provider: "alpha"},
			{Name: "beta:search", Provider: "beta"},
			{Name: "fetch", Provider: "alpha"},
		},
	}
	owners := snap.OwningProviders("search")
	if len(owners) != 2 || owners[0] != "alpha" || owners[1] != "beta" {
		t.Errorf("OwningProviders(\"search\") = %v, want [alpha beta]", owners)
	}
	if owners := snap.OwningProviders("fetch"); len(owners) != 0 {
		t.Errorf("OwningProviders(\"fetch\") = %v, want none (not namespaced)", owners)
	}
}

func TestComputeVersionStableAndSensitive(t *testing.T) {
	toolByName := map[string]Tool{"a": {Name: "a"}, "b": {Name: "b"}}
	conflicts := map[string]struct{}{}

	v1 := ComputeVersion(toolByName, conflicts)
	v2 := ComputeVersion(map[string]Tool{"b": {Name: "b"}, "a": {Name: "a"}}, conflicts)
	if v1 != v2 {
		t.Error("ComputeVersion should be insensitive to map iteration order")
	}

	v3 := ComputeVersion(map[string]Tool{"a": {Name: "a"}}, conflicts)
	if v1 == v3 {
		t.Error("ComputeVersion should change when the tool set changes")
	}

	v4 := ComputeVersion(toolByName, map[string]struct{}{"a": {}})
	if v1 == v4 {
		t.Error("ComputeVersion should change when the conflict set changes")
	}
}
