// Package conflict builds the user-facing error payloads for the three
// routing failure modes the gateway can hit: ambiguous tool name,
// not-found tool name (with similar-name suggestions), and unavailable
// provider.
package conflict

import (
	"sort"
	"strings"
)

// AmbiguousToolPayload is the error.data payload for a name that maps to
// more than one provider.
type AmbiguousToolPayload struct {
	ErrorType      string   `json:"errorType"`
	ToolName       string   `json:"tool_name"`
	AvailableTools []string `json:"available_tools"`
	Suggestion     string   `json:"suggestion"`
	Example        string   `json:"example"`
}

// ToolNotFoundPayload is the error.data payload for a name with no provider.
type ToolNotFoundPayload struct {
	ErrorType    string   `json:"errorType"`
	ToolName     string   `json:"tool_name"`
	SimilarTools []string `json:"similar_tools"`
}

// ProviderUnavailablePayload is the error.data payload for a routed-to
// provider that is not connected.
type ProviderUnavailablePayload struct {
	ErrorType string `json:"errorType"`
	Provider  string `json:"provider"`
}

// BuildAmbiguousTool builds the payload for a tool name n that collided
// across the given provider names (already sorted by caller preference;
// this function does not re-sort to preserve aggregation order).
func BuildAmbiguousTool(n string, owningProviders []string) AmbiguousToolPayload {
	available := make([]string, len(owningProviders))
	for i, p := range owningProviders {
		available[i] = p + ":" + n
	}
	example := n
	if len(available) > 0 {
		example = available[0]
	}
	return AmbiguousToolPayload{
		ErrorType:      "ambiguous_tool",
		ToolName:       n,
		AvailableTools: available,
		Suggestion:     "specify the provider explicitly using '<provider>:" + n + "'",
		Example:        example,
	}
}

// BuildProviderUnavailable builds the payload for a provider that is not
// currently connected.
func BuildProviderUnavailable(providerName string) ProviderUnavailablePayload {
	return ProviderUnavailablePayload{
		ErrorType: "provider_unavailable",
		Provider:  providerName,
	}
}

const topN = 5

// BuildToolNotFound scores every name in known against n using three
// signals - substring match (10), a shared underscore-separated word (5), a
// shared 3-character prefix (3) - and keeps the top 5 by score.
func BuildToolNotFound(n string, known []string) ToolNotFoundPayload {
	type scored struct {
		name  string
		score int
	}
	var candidates []scored
	for _, k := range known {
		if k == n {
			continue
		}
		s := similarityScore(n, k)
		if s > 0 {
			candidates = append(candidates, scored{name: k, score: s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	similar := make([]string, len(candidates))
	for i, c := range candidates {
		similar[i] = c.name
	}
	return ToolNotFoundPayload{
		ErrorType:    "tool_not_found",
		ToolName:     n,
		SimilarTools: similar,
	}
}

func similarityScore(a, b string) int {
	score := 0
	if strings.Contains(b, a) || strings.Contains(a, b) {
		score += 10
	}
	if sharedUnderscoreWord(a, b) {
		score += 5
	}
	if len(a) >= 3 && len(b) >= 3 && a[:3] == b[:3] {
		score += 3
	}
	return score
}

func sharedUnderscoreWord(a, b string) bool {
	aWords := strings.Split(a, "_")
	bSet := make(map[string]struct{}, len(strings.Split(b, "_")))
	for _, w := range strings.Split(b, "_") {
		bSet[w] = struct{}{}
	}
	for _, w := range aWords {
		if w == "" {
			continue
		}
		if _, ok := bSet[w]; ok {
			return true
		}
	}
	return false
}
