package provider

import (
	"context"

	"github.com/brightgate-labs/mcpgateway/internal/port/outbound"
)

// AdapterType is the static, process-wide-registered description of one
// provider implementation: its metadata plus the factory that builds a
// Transport from a config fragment. The registry stores AdapterTypes by
// name; the supervisor instantiates an Instance from one at startup.
type AdapterType struct {
	Name          string
	DisplayName   string
	Category      string
	RequiresOAuth bool
	TransportKind TransportKind
	// CreateTransport builds a fresh, not-yet-connected Transport from a
	// config fragment. Adapters type-assert or re-decode cfg into their own
	// settings shape.
	CreateTransport func(cfg Config) (outbound.Transport, error)
	// ValidateConfig reports whether cfg parses under this adapter's schema.
	ValidateConfig func(cfg Config) bool
}

// Instance is one live provider: its static Provider metadata plus the
// connected ProviderClient built by wrapping the adapter's Transport in a
// client demux. Calling an MCP op on an Instance whose Client is nil (not
// connected) is a programmer error.
type Instance struct {
	Provider
	Client outbound.ProviderClient
}

// HealthCheck delegates to the underlying client; see
// outbound.ProviderClient.HealthCheck for the never-throws contract.
func (i *Instance) HealthCheck(ctx context.Context) bool {
	if i.Client == nil {
		return false
	}
	return i.Client.HealthCheck(ctx)
}
