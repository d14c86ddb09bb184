// Package aggregator implements the three sibling catalog aggregators:
// tools, resources, prompts. All tolerate per-provider failure by treating
// that provider's catalog as empty for the cycle. On a name collision both
// sides are namespaced under "<provider>:<name>" rather than one silently
// shadowing the other.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/brightgate-labs/mcpgateway/internal/domain/catalog"
	"github.com/brightgate-labs/mcpgateway/internal/domain/gatewayerr"
	"github.com/brightgate-labs/mcpgateway/internal/domain/provider"
)

// wireTool is the JSON shape a provider's tools/list result carries per
// entry, before gateway enrichment.
type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type wireToolList struct {
	Tools []wireTool `json:"tools"`
}

type wireResource struct {
	URI          string `json:"uri"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	MimeType     string `json:"mimeType"`
	ResourceType string `json:"resourceType"`
}

type wireResourceList struct {
	Resources []wireResource `json:"resources"`
}

type wirePrompt struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Parameters  []catalog.PromptParameter `json:"parameters"`
}

type wirePromptList struct {
	Prompts []wirePrompt `json:"prompts"`
}

// Aggregator runs the three aggregation cycles over a set of connected
// provider instances.
type Aggregator struct {
	logger *slog.Logger
}

// New constructs an Aggregator.
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// Build runs all three aggregation passes concurrently over providers
// (iterated in the given input order for the stable tie-break rule) and
// returns the resulting Snapshot.
func (a *Aggregator) Build(ctx context.Context, providers []*provider.Instance) *catalog.Snapshot {
	var (
		tools     []catalog.Tool
		toolByN   map[string]catalog.Tool
		provByN   map[string]string
		conflicts map[string]struct{}
		resources []catalog.Resource
		prompts   []catalog.Prompt
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		tools, toolByN, provByN, conflicts = a.buildTools(ctx, providers)
	}()
	go func() {
		defer wg.Done()
		resources = a.buildResources(ctx, providers)
	}()
	go func() {
		defer wg.Done()
		prompts = a.buildPrompts(ctx, providers)
	}()
	wg.Wait()

	return &catalog.Snapshot{
		Tools:          tools,
		Resources:      resources,
		Prompts:        prompts,
		ToolByName:     toolByN,
		ProviderByTool: provByN,
		Conflicts:      conflicts,
		Version:        catalog.ComputeVersion(toolByN, conflicts),
	}
}

// buildTools fetches every provider's tool list concurrently, counts name
// occurrences across providers, and namespaces BOTH sides of any conflict.
func (a *Aggregator) buildTools(ctx context.Context, providers []*provider.Instance) ([]catalog.Tool, map[string]catalog.Tool, map[string]string, map[string]struct{}) {
	type perProvider struct {
		provider *provider.Instance
		tools    []wireTool
	}
	results := make([]perProvider, len(providers))

	var wg sync.WaitGroup
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p *provider.Instance) {
			defer wg.Done()
			if !p.Connected() || p.Client == nil {
				return
			}
			raw, err := p.Client.ListTools(ctx)
			if err != nil {
				a.logger.Warn("tool aggregation: provider failed, treating as empty", "provider", p.Name, "error", err)
				return
			}
			var list wireToolList
			if err := json.Unmarshal(raw, &list); err != nil {
				a.logger.Warn("tool aggregation: malformed tools/list result", "provider", p.Name, "error", err)
				return
			}
			results[i] = perProvider{provider: p, tools: list.Tools}
		}(i, p)
	}
	wg.Wait()

	counts := make(map[string]int)
	for _, r := range results {
		for _, t := range r.tools {
			counts[t.Name]++
			if strings.Contains(t.Name, ":") {
				a.logger.Warn("tool name contains the namespace separator ':' - namespacing on conflict will shadow it", "tool", t.Name, "provider", r.provider.Name)
			}
		}
	}

	conflicts := make(map[string]struct{})
	for name, n := range counts {
		if n > 1 {
			conflicts[name] = struct{}{}
		}
	}

	var tools []catalog.Tool
	toolByName := make(map[string]catalog.Tool)
	providerByTool := make(map[string]string)

	for _, r := range results {
		if r.provider == nil {
			continue
		}
		for _, t := range r.tools {
			published := t.Name
			reason := ""
			if _, conflict := conflicts[t.Name]; conflict {
				published = fmt.Sprintf("%s:%s", r.provider.Name, t.Name)
				reason = "conflict"
			}
			ct := catalog.Tool{
				Name:            published,
				Description:     t.Description,
				InputSchema:     t.InputSchema,
				Provider:        r.provider.Name,
				Category:        r.provider.Category,
				NamespaceReason: reason,
			}
			tools = append(tools, ct)
			toolByName[published] = ct
			providerByTool[published] = r.provider.Name
		}
	}

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	return tools, toolByName, providerByTool, conflicts
}

// buildResources rewrites each resource URI to "<provider>://<original>" if
// not already so prefixed.
func (a *Aggregator) buildResources(ctx context.Context, providers []*provider.Instance) []catalog.Resource {
	var (
		mu  sync.Mutex
		out []catalog.Resource
	)
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p *provider.Instance) {
			defer wg.Done()
			if !p.Connected() || p.Client == nil {
				return
			}
			raw, err := p.Client.ListResources(ctx)
			if err != nil {
				a.logger.Warn("resource aggregation: provider failed, treating as empty", "provider", p.Name, "error", err)
				return
			}
			var list wireResourceList
			if err := json.Unmarshal(raw, &list); err != nil {
				a.logger.Warn("resource aggregation: malformed resources/list result", "provider", p.Name, "error", err)
				return
			}
			prefix := p.Name + "://"
			var local []catalog.Resource
			for _, r := range list.Resources {
				uri := r.URI
				if !strings.HasPrefix(uri, prefix) {
					uri = prefix + uri
				}
				local = append(local, catalog.Resource{
					URI:          uri,
					Name:         r.Name,
					Description:  r.Description,
					MimeType:     r.MimeType,
					ResourceType: catalog.ResourceType(r.ResourceType),
				})
			}
			mu.Lock()
			out = append(out, local...)
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// buildPrompts is a simple union; prompts are not name-routed the way tools
// and resources are, so no conflict detection is applied here.
func (a *Aggregator) buildPrompts(ctx context.Context, providers []*provider.Instance) []catalog.Prompt {
	var (
		mu  sync.Mutex
		out []catalog.Prompt
	)
	var wg sync.WaitGroup
	for _, p := range providers {
		wg.Add(1)
		go func(p *provider.Instance) {
			defer wg.Done()
			if !p.Connected() || p.Client == nil {
				return
			}
			raw, err := p.Client.ListPrompts(ctx)
			if err != nil {
				a.logger.Warn("prompt aggregation: provider failed, treating as empty", "provider", p.Name, "error", err)
				return
			}
			var list wirePromptList
			if err := json.Unmarshal(raw, &list); err != nil {
				a.logger.Warn("prompt aggregation: malformed prompts/list result", "provider", p.Name, "error", err)
				return
			}
			var local []catalog.Prompt
			for _, pr := range list.Prompts {
				local = append(local, catalog.Prompt{
					Name:        pr.Name,
					Description: pr.Description,
					Parameters:  pr.Parameters,
					Provider:    p.Name,
				})
			}
			mu.Lock()
			out = append(out, local...)
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetProviderForTool resolves a natural (non-namespaced) tool name to its
// owning provider.
func GetProviderForTool(snap *catalog.Snapshot, name string) (string, error) {
	if p, ok := snap.ProviderByTool[name]; ok {
		return p, nil
	}
	if snap.HasConflict(name) {
		return "", gatewayerr.New(gatewayerr.KindAmbiguousTool, fmt.Sprintf("tool %q maps to more than one provider", name))
	}
	return "", gatewayerr.New(gatewayerr.KindToolNotFound, fmt.Sprintf("tool %q not found", name))
}
