package catalog

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is the immutable, atomically-published aggregated catalog. A new
// Snapshot is built wholesale each aggregation cycle and swapped in behind an
// atomic.Pointer (see internal/service/supervisor); readers never observe a
// partially-built snapshot.
//
// Invariant: every entry in ToolByName is reachable from ProviderByTool, and
// for every name in Conflicts there is no bare ToolByName[name] entry - only
// the namespaced "<provider>:<name>" entries exist.
type Snapshot struct {
	Tools       []Tool
	Resources   []Resource
	Prompts     []Prompt
	ToolByName  map[string]Tool
	ProviderByTool map[string]string
	Conflicts   map[string]struct{}
	// Version is an xxhash-64 digest over the sorted set of published tool
	// names plus the sorted conflict set, letting callers cheaply detect
	// "nothing actually changed" without a deep structural comparison.
	Version uint64
}

// Empty returns a zero-value, conflict-free snapshot suitable as the
// gateway's state before the first aggregation cycle completes.
func Empty() *Snapshot {
	return &Snapshot{
		ToolByName:     map[string]Tool{},
		ProviderByTool: map[string]string{},
		Conflicts:      map[string]struct{}{},
	}
}

// HasConflict reports whether the given natural tool name collided across
// more than one provider in this snapshot.
func (s *Snapshot) HasConflict(name string) bool {
	_, ok := s.Conflicts[name]
	return ok
}

// OwningProviders returns, for a natural tool name that collided, the set
// of provider names that published it (each reachable only via its
// "<provider>:<name>" namespaced entry), in the stable order the
// aggregator published them.
func (s *Snapshot) OwningProviders(naturalName string) []string {
	suffix := ":" + naturalName
	var owners []string
	for _, t := range s.Tools {
		if t.Name == t.Provider+suffix {
			owners = append(owners, t.Provider)
		}
	}
	return owners
}

// ComputeVersion derives the content-hash Version field from the snapshot's
// published tool names and conflict set. Two snapshots built from identical
// provider catalogs hash identically even if rebuilt independently, letting
// the supervisor skip a republish when nothing changed.
func ComputeVersion(toolByName map[string]Tool, conflicts map[string]struct{}) uint64 {
	names := make([]string, 0, len(toolByName))
	for n := range toolByName {
		names = append(names, n)
	}
	sort.Strings(names)

	confNames := make([]string, 0, len(conflicts))
	for n := range conflicts {
		confNames = append(confNames, n)
	}
	sort.Strings(confNames)

	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\x00')
	}
	b.WriteByte('\x01')
	for _, n := range confNames {
		b.WriteString(n)
		b.WriteByte('\x00')
	}
	return xxhash.Sum64String(b.String())
}
