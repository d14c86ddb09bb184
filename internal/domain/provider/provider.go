// Package provider holds the domain type describing one configured upstream
// MCP backend: a display name, a category, an OAuth requirement flag, and a
// config-class name the registry uses to pick an adapter.
package provider

import (
	"fmt"
	"regexp"
)

// TransportKind identifies which transport variant a provider speaks.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportSSE   TransportKind = "sse"
)

// State is the runtime connection state of a Provider instance.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateFailed       State = "failed"
)

// namePattern restricts provider names to characters that are safe to use
// as a URI scheme and as the left-hand side of a "<provider>:<tool>" name.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const nameMaxLength = 100

// Config is the provider-specific settings fragment handed to an adapter's
// createTransport/validateConfig operations. Concrete adapters type-assert
// or re-decode this into their own settings struct; the core treats it
// opaquely.
type Config map[string]interface{}

// Provider is one configured, possibly-connected upstream MCP backend.
type Provider struct {
	// Name uniquely identifies this provider within the gateway and doubles
	// as its resource-URI scheme and tool-namespace prefix.
	Name string
	// DisplayName is a human-readable label, not used for routing.
	DisplayName string
	// Category groups providers for presentation purposes only.
	Category string
	// RequiresOAuth flags that this provider's config is produced by the
	// out-of-core OAuth wizard rather than supplied directly.
	RequiresOAuth bool
	// TransportKind selects which Transport variant Connect constructs.
	TransportKind TransportKind
	// ConfigClass names the adapter type this provider was instantiated
	// from; set by the registry at createProvider time.
	ConfigClass string
	// Settings is the provider-specific config fragment from
	// global config's provider_settings map.
	Settings Config

	// State is the current connection state, mutated only by the
	// supervisor and the provider's own Connect/Disconnect.
	State State
	// LastError records the most recent connect/health-check failure.
	LastError string
}

// Validate checks the provider's static metadata. It does not validate
// Settings; that is the adapter's validateConfig responsibility.
func (p *Provider) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("provider name is required")
	}
	if len(p.Name) > nameMaxLength {
		return fmt.Errorf("provider name must be %d characters or less", nameMaxLength)
	}
	if !namePattern.MatchString(p.Name) {
		return fmt.Errorf("provider name contains invalid characters (allowed: alphanumeric, hyphen, underscore)")
	}
	switch p.TransportKind {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("transportKind must be %q or %q", TransportStdio, TransportSSE)
	}
	return nil
}

// Connected reports whether the provider is presently usable for routing.
func (p *Provider) Connected() bool {
	return p.State == StateConnected
}
