// Package outbound defines the outbound port interfaces the core depends on
// to reach upstream MCP providers: a byte-level Transport and the
// higher-level ProviderClient built on top of one via the client demux
// in internal/service/demux.
package outbound

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// Incoming is one message read off a Transport's reply stream.
type Incoming struct {
	Response *jsonrpc.Response
	// Err is set, and Response nil, when the transport's reader loop ends
	// (EOF, decode failure propagated as a terminal error, or disconnect).
	Err error
}

// Transport owns a duplex byte channel to one upstream MCP server. It is the
// polymorphic capability with two variants (stdio, SSE); see
// internal/adapter/outbound/transport. Transport itself does not correlate
// replies to requests - that is the client demux's job - it only
// serializes writes and exposes a stream of decoded replies.
type Transport interface {
	// Connect acquires the underlying resource (spawns the child process or
	// dials the HTTP endpoint) and starts the background reader. Returns a
	// gatewayerr of KindConnection on failure.
	Connect(ctx context.Context) error

	// Send writes one framed request. Safe for concurrent callers. The stdio
	// variant serializes writes under a mutex; the SSE variant posts each
	// request independently, so wire order is not guaranteed there.
	Send(ctx context.Context, req *jsonrpc.Request) error

	// Replies returns the channel of incoming reply messages. The channel
	// is closed after a final Incoming{Err: ...} value is delivered.
	Replies() <-chan Incoming

	// Disconnect releases all resources. Idempotent.
	Disconnect(ctx context.Context) error
}

// ProviderClient is the outbound port for the MCP operations a Provider
// exposes once connected: listResources, readResource, listTools, callTool,
// listPrompts, getPrompt. Implemented by internal/service/demux.Client.
type ProviderClient interface {
	ListTools(ctx context.Context) ([]byte, error)
	CallTool(ctx context.Context, name string, args []byte) ([]byte, error)
	ListResources(ctx context.Context) ([]byte, error)
	ReadResource(ctx context.Context, uri string) ([]byte, error)
	ListPrompts(ctx context.Context) ([]byte, error)
	GetPrompt(ctx context.Context, name string, args []byte) ([]byte, error)
	// HealthCheck reports true iff a listResources round-trip succeeds. It
	// never returns an error to the caller; failures are logged and yield
	// false.
	HealthCheck(ctx context.Context) bool
}
