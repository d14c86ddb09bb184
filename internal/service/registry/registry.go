// Package registry implements the process-wide provider adapter registry:
// register/discover/createProvider over a name->AdapterType map.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/brightgate-labs/mcpgateway/internal/domain/provider"
	"github.com/brightgate-labs/mcpgateway/internal/port/outbound"
)

// Registry is the process-wide map of provider name -> AdapterType.
// discover() is expected to run once at startup before any concurrent
// access begins; register/createProvider are safe for concurrent use
// thereafter.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]provider.AdapterType
	logger *slog.Logger

	// lastInstance caches the most recently created Instance per name.
	lastInstance map[string]*provider.Instance
}

// New constructs an empty Registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		types:        make(map[string]provider.AdapterType),
		lastInstance: make(map[string]*provider.Instance),
		logger:       logger,
	}
}

// Register adds an adapter type. Rejects a type with an empty name.
func (r *Registry) Register(t provider.AdapterType) error {
	if t.Name == "" {
		return fmt.Errorf("registry: adapter type name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name] = t
	return nil
}

// Lookup returns the adapter type registered under name.
func (r *Registry) Lookup(name string) (provider.AdapterType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// manifest is the per-provider-directory descriptor discover() reads,
// {searchDir}/{category}/{provider}/manifest.json, naming which registered
// Go adapter type backs this directory. The manifest does not itself carry
// Go code; discover() is a directory-driven activation mechanism over
// adapter types that were compiled in and Register()-ed at startup (the serve
// command calls builtin.Register), not a dynamic-plugin loader.
type manifest struct {
	AdapterType string `json:"adapterType"`
	Category    string `json:"category"`
}

// Discover walks <searchDir>/<category>/<provider>/manifest.json, recording
// each provider's category against its already-registered adapter type.
// Per-entry failures are logged and skipped, never fatal.
func (r *Registry) Discover(searchDir string) {
	categories, err := os.ReadDir(searchDir)
	if err != nil {
		r.logger.Warn("provider discovery: cannot read search dir", "dir", searchDir, "error", err)
		return
	}
	for _, cat := range categories {
		if !cat.IsDir() {
			continue
		}
		catDir := filepath.Join(searchDir, cat.Name())
		providers, err := os.ReadDir(catDir)
		if err != nil {
			r.logger.Warn("provider discovery: cannot read category dir", "dir", catDir, "error", err)
			continue
		}
		for _, p := range providers {
			if !p.IsDir() {
				continue
			}
			manifestPath := filepath.Join(catDir, p.Name(), "manifest.json")
			data, err := os.ReadFile(manifestPath)
			if err != nil {
				r.logger.Warn("provider discovery: skipping entry without manifest", "path", manifestPath, "error", err)
				continue
			}
			var m manifest
			if err := json.Unmarshal(data, &m); err != nil {
				r.logger.Warn("provider discovery: malformed manifest", "path", manifestPath, "error", err)
				continue
			}
			t, ok := r.Lookup(m.AdapterType)
			if !ok {
				r.logger.Warn("provider discovery: unknown adapter type", "adapterType", m.AdapterType, "path", manifestPath)
				continue
			}
			if m.Category != "" {
				t.Category = m.Category
				_ = r.Register(t)
			}
		}
	}
}

// CreateProvider instantiates a fresh provider.Instance from the adapter
// type registered under name, and caches it as the most recent instance for
// that name.
func (r *Registry) CreateProvider(name string, settings provider.Config) (*provider.Instance, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("registry: no adapter type registered for %q", name)
	}

	inst := &provider.Instance{
		Provider: provider.Provider{
			Name:          name,
			DisplayName:   t.DisplayName,
			Category:      t.Category,
			RequiresOAuth: t.RequiresOAuth,
			TransportKind: t.TransportKind,
			ConfigClass:   t.Name,
			Settings:      settings,
			State:         provider.StateIdle,
		},
	}

	r.mu.Lock()
	r.lastInstance[name] = inst
	r.mu.Unlock()

	return inst, nil
}

// LastInstance returns the most recently created Instance for name, if any.
func (r *Registry) LastInstance(name string) (*provider.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.lastInstance[name]
	return inst, ok
}

// BuildTransport invokes the registered adapter type's CreateTransport
// factory for inst, returning a fresh, not-yet-connected Transport. The
// supervisor wraps the result in a client demux and calls Connect.
func (r *Registry) BuildTransport(inst *provider.Instance) (outbound.Transport, error) {
	t, ok := r.Lookup(inst.ConfigClass)
	if !ok {
		return nil, fmt.Errorf("registry: no adapter type registered for %q", inst.ConfigClass)
	}
	if t.CreateTransport == nil {
		return nil, fmt.Errorf("registry: adapter type %q has no transport factory", inst.ConfigClass)
	}
	return t.CreateTransport(inst.Settings)
}

// ValidateConfig reports whether inst's Settings parse under its adapter
// type's declared schema.
func (r *Registry) ValidateConfig(inst *provider.Instance) bool {
	t, ok := r.Lookup(inst.ConfigClass)
	if !ok || t.ValidateConfig == nil {
		return true
	}
	return t.ValidateConfig(inst.Settings)
}
