package gateway

import (
	"context"
	"os"

	"github.com/brightgate-labs/mcpgateway/internal/port/inbound"
)

// StdioProxy adapts a Server, bound to the process's stdin/stdout, to the
// inbound.ProxyService contract the command-line front-end drives.
type StdioProxy struct {
	server *Server
	cancel context.CancelFunc
}

// NewStdioProxy constructs a StdioProxy over server.
func NewStdioProxy(server *Server) *StdioProxy {
	return &StdioProxy{server: server}
}

// Start blocks, proxying stdin to stdout through the wrapped Server, until
// ctx is cancelled or stdin is exhausted.
func (p *StdioProxy) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	defer cancel()
	return p.server.Serve(runCtx, os.Stdin, os.Stdout)
}

// Close cancels the running Serve loop, if any. Idempotent.
func (p *StdioProxy) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

var _ inbound.ProxyService = (*StdioProxy)(nil)
