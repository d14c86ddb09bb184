package conflict

import (
	"reflect"
	"testing"
)

func TestBuildAmbiguousTool(t *testing.T) {
	p := BuildAmbiguousTool("search", []string{"alpha", "beta"})
	if p.ErrorType != "ambiguous_tool" {
		t.Errorf("ErrorType = %q, want ambiguous_tool", p.ErrorType)
	}
	want := []string{"alpha:search", "beta:search"}
	if !reflect.DeepEqual(p.AvailableTools, want) {
		t.Errorf("AvailableTools = %v, want %v", p.AvailableTools, want)
	}
	if p.Example != "alpha:search" {
		t.Errorf("Example = %q, want alpha:search", p.Example)
	}
}

func TestBuildAmbiguousToolNoOwners(t *testing.T) {
	p := BuildAmbiguousTool("search", nil)
	if p.Example != "search" {
		t.Errorf("Example = %q, want the bare name when there are no owners", p.Example)
	}
}

func TestBuildProviderUnavailable(t *testing.T) {
	p := BuildProviderUnavailable("alpha")
	if p.ErrorType != "provider_unavailable" || p.Provider != "alpha" {
		t.Errorf("unexpected payload: %+v", p)
	}
}

func TestBuildToolNotFoundRanksAndCaps(t *testing.T) {
	known := []string{
		"file_read",        // the query itself; excluded from suggestions
		"file_write",        // same
		"file_read_binary",  // substring match with file_read
		"directory_list",    // no relation
		"file_append",       // shares "file" word + prefix
		"file_delete",       // shares "file" word + prefix
	}
	p := BuildToolNotFound("file_read", known)
	if p.ErrorType != "tool_not_found" || p.ToolName != "file_read" {
		t.Errorf("unexpected header fields: %+v", p)
	}
	if len(p.SimilarTools) > 5 {
		t.Errorf("SimilarTools should be capped at 5, got %d", len(p.SimilarTools))
	}
	if len(p.SimilarTools) == 0 {
		t.Fatal("expected at least one similar tool")
	}
	// file_read_binary contains "file_read" as a substring: highest score.
	if p.SimilarTools[0] != "file_read_binary" {
		t.Errorf("SimilarTools[0] = %q, want file_read_binary (substring match)", p.SimilarTools[0])
	}
	for _, name := range p.SimilarTools {
		if name == "file_read" {
			t.Error("SimilarTools should not include the query name itself")
		}
	}
}

func TestBuildToolNotFoundNoMatches(t *testing.T) {
	p := BuildToolNotFound("zzz_unrelated", []string{"alpha", "beta"})
	if len(p.SimilarTools) != 0 {
		t.Errorf("expected no similar tools, got %v", p.SimilarTools)
	}
}
