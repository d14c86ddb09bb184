// Package builtin registers the gateway's two stock provider adapter types
// - "stdio" and "sse" - with a registry. Both read their settings fragment
// directly out of provider.Config rather than a dedicated settings struct,
// since neither needs more than a handful of primitive fields.
package builtin

import (
	"fmt"
	"log/slog"

	"github.com/brightgate-labs/mcpgateway/internal/adapter/outbound/transport"
	"github.com/brightgate-labs/mcpgateway/internal/domain/provider"
	"github.com/brightgate-labs/mcpgateway/internal/port/outbound"
	"github.com/brightgate-labs/mcpgateway/internal/service/registry"
)

// Register adds the "stdio" and "sse" adapter types to reg.
func Register(reg *registry.Registry, logger *slog.Logger) error {
	if err := reg.Register(stdioAdapterType(logger)); err != nil {
		return err
	}
	if err := reg.Register(sseAdapterType(logger)); err != nil {
		return err
	}
	return nil
}

func stdioAdapterType(logger *slog.Logger) provider.AdapterType {
	return provider.AdapterType{
		Name:          "stdio",
		DisplayName:   "Stdio Process",
		Category:      "generic",
		TransportKind: provider.TransportStdio,
		CreateTransport: func(cfg provider.Config) (outbound.Transport, error) {
			command, _ := cfg["command"].(string)
			if command == "" {
				return nil, fmt.Errorf("stdio provider config requires a non-empty \"command\"")
			}
			args := stringSlice(cfg["args"])
			env := stringSlice(cfg["env"])
			dir, _ := cfg["working_directory"].(string)
			return transport.NewStdio(command, args, env, dir, logger), nil
		},
		ValidateConfig: func(cfg provider.Config) bool {
			command, ok := cfg["command"].(string)
			return ok && command != ""
		},
	}
}

func sseAdapterType(logger *slog.Logger) provider.AdapterType {
	return provider.AdapterType{
		Name:          "sse",
		DisplayName:   "SSE Endpoint",
		Category:      "generic",
		TransportKind: provider.TransportSSE,
		CreateTransport: func(cfg provider.Config) (outbound.Transport, error) {
			endpoint, _ := cfg["endpoint"].(string)
			if endpoint == "" {
				return nil, fmt.Errorf("sse provider config requires a non-empty \"endpoint\"")
			}
			return transport.NewSSE(endpoint, logger), nil
		},
		ValidateConfig: func(cfg provider.Config) bool {
			endpoint, ok := cfg["endpoint"].(string)
			return ok && endpoint != ""
		},
	}
}

func stringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
