// Package gatewayerr defines the gateway's error taxonomy. Each kind maps to
// a specific JSON-RPC surfacing rule at the gateway server boundary
// (internal/adapter/inbound/gateway); see Kind.JSONRPCCode.
package gatewayerr

import "fmt"

// Kind identifies one of the gateway's error categories.
type Kind string

const (
	// KindConnection: a transport could not be established.
	KindConnection Kind = "connection"
	// KindTransport: I/O failed mid-session on an established transport.
	KindTransport Kind = "transport"
	// KindTimeout: a send deadline elapsed before a reply arrived.
	KindTimeout Kind = "timeout"
	// KindProtocol: a reply was malformed or missing a required field.
	KindProtocol Kind = "protocol"
	// KindAuthentication: an OAuth/token exchange failed (wizard-facing only).
	KindAuthentication Kind = "authentication"
	// KindProvider: the upstream provider returned a JSON-RPC error.
	KindProvider Kind = "provider_error"
	// KindConfiguration: an adapter's config did not validate.
	KindConfiguration Kind = "configuration"
	// KindAmbiguousTool: a tool name resolved to more than one provider.
	KindAmbiguousTool Kind = "ambiguous_tool"
	// KindToolNotFound: a tool name resolved to no provider.
	KindToolNotFound Kind = "tool_not_found"
	// KindProviderUnavailable: the routed-to provider is not connected.
	KindProviderUnavailable Kind = "provider_unavailable"
	// KindValidation: a request failed a structural check (e.g. namespace
	// prefix mismatch) before it ever reached a provider.
	KindValidation Kind = "validation"
	// KindNotImplemented: the method is declared but intentionally stubbed
	// (prompts/get).
	KindNotImplemented Kind = "not_implemented"
)

// JSONRPCCode returns the JSON-RPC error code the gateway server should use
// when surfacing an error of this kind to the outer MCP client.
func (k Kind) JSONRPCCode() int {
	switch k {
	case KindValidation:
		return -32602
	default:
		return -32000
	}
}

// Error is a typed gateway error carrying enough structure for the gateway
// server to build a JSON-RPC error.data payload (see internal/domain/conflict
// for the ambiguous_tool / tool_not_found / provider_unavailable payloads).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a gateway *Error of the given kind, unwrapping
// as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ge, ok := err.(*Error); ok {
			e = ge
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
