// Package demux implements the client-side request/reply correlation layer:
// a pending-request table keyed by id, a single writer path, and a
// single reader goroutine that completes waiters as replies arrive.
package demux

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/brightgate-labs/mcpgateway/internal/domain/gatewayerr"
	"github.com/brightgate-labs/mcpgateway/internal/port/outbound"
)

// DefaultTimeout is the per-request default if the caller does not specify
// one.
const DefaultTimeout = 60 * time.Second

// waiter is the single-shot rendezvous primitive backing one pending
// request id.
type waiter struct {
	done chan struct{}
	resp *jsonrpc.Response
	err  error
	once sync.Once
}

func newWaiter() *waiter { return &waiter{done: make(chan struct{})} }

func (w *waiter) complete(resp *jsonrpc.Response, err error) {
	w.once.Do(func() {
		w.resp, w.err = resp, err
		close(w.done)
	})
}

// Client is a demultiplexing MCP client built on top of one Transport. It
// implements outbound.ProviderClient.
type Client struct {
	transport outbound.Transport
	logger    *slog.Logger
	timeout   time.Duration

	counter uint64

	mu      sync.Mutex
	pending map[string]*waiter
}

// New wraps transport in a demultiplexing client, using DefaultTimeout for
// every call until overridden with SetTimeout. Connect must be called
// before any MCP operation.
func New(transport outbound.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		transport: transport,
		logger:    logger,
		timeout:   DefaultTimeout,
		pending:   make(map[string]*waiter),
	}
}

// SetTimeout overrides the per-request timeout every subsequent call()
// uses. A non-positive d is ignored.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Timeout returns the per-request timeout currently in effect.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Connect connects the underlying transport and starts the reader loop.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return err
	}
	go c.readLoop()
	return nil
}

// Disconnect disconnects the underlying transport.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.transport.Disconnect(ctx)
}

func (c *Client) readLoop() {
	for incoming := range c.transport.Replies() {
		if incoming.Err != nil {
			c.failAllPending(incoming.Err)
			return
		}
		c.complete(incoming.Response)
	}
	c.failAllPending(fmt.Errorf("transport replies channel closed"))
}

func (c *Client) complete(resp *jsonrpc.Response) {
	id := idString(resp.ID)
	c.mu.Lock()
	w, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		// Reply for an id nobody is waiting on (already timed out/cancelled,
		// or malformed); dropped silently.
		return
	}
	w.complete(resp, nil)
}

func (c *Client) failAllPending(cause error) {
	c.mu.Lock()
	waiters := c.pending
	c.pending = make(map[string]*waiter)
	c.mu.Unlock()
	for _, w := range waiters {
		w.complete(nil, gatewayerr.Wrap(gatewayerr.KindTransport, "transport closed before reply", cause))
	}
}

// nextID generates a string id of the form "req-<n>-<8hex>".
func (c *Client) nextID() string {
	c.mu.Lock()
	c.counter++
	n := c.counter
	c.mu.Unlock()
	return fmt.Sprintf("req-%d-%s", n, uuid.NewString()[:8])
}

// call performs one correlated request/reply round-trip with the default
// timeout.
func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return c.callWithTimeout(ctx, method, params, c.timeout)
}

func (c *Client) callWithTimeout(ctx context.Context, method string, params json.RawMessage, timeout time.Duration) (json.RawMessage, error) {
	idStr := c.nextID()
	id, err := jsonrpc.MakeID(idStr)
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindProtocol, "construct request id", err)
	}

	w := newWaiter()
	c.mu.Lock()
	c.pending[idStr] = w
	c.mu.Unlock()

	// The pending entry must be removed before any return path below
	// observes the outcome, so a late reply after cancel/timeout is
	// silently dropped by complete().
	defer func() {
		c.mu.Lock()
		delete(c.pending, idStr)
		c.mu.Unlock()
	}()

	req := &jsonrpc.Request{ID: id, Method: method, Params: params}
	if err := c.transport.Send(ctx, req); err != nil {
		return nil, err
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-w.done:
		if w.err != nil {
			return nil, w.err
		}
		if w.resp.Error != nil {
			return nil, gatewayerr.Wrap(gatewayerr.KindProvider, w.resp.Error.Message, fmt.Errorf("code %d", w.resp.Error.Code))
		}
		return w.resp.Result, nil
	case <-deadline:
		return nil, gatewayerr.New(gatewayerr.KindTimeout, fmt.Sprintf("timed out waiting for reply to %s", method))
	case <-ctx.Done():
		return nil, gatewayerr.Wrap(gatewayerr.KindTimeout, "request cancelled", ctx.Err())
	}
}

func idString(id jsonrpc.ID) string {
	return fmt.Sprintf("%v", id.Raw())
}

// ListTools implements outbound.ProviderClient.
func (c *Client) ListTools(ctx context.Context) ([]byte, error) {
	return c.call(ctx, "tools/list", nil)
}

// CallTool implements outbound.ProviderClient.
func (c *Client) CallTool(ctx context.Context, name string, args []byte) ([]byte, error) {
	params, err := json.Marshal(map[string]json.RawMessage{
		"name":      mustMarshal(name),
		"arguments": rawOrNull(args),
	})
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindProtocol, "marshal callTool params", err)
	}
	return c.call(ctx, "tools/call", params)
}

// ListResources implements outbound.ProviderClient.
func (c *Client) ListResources(ctx context.Context) ([]byte, error) {
	return c.call(ctx, "resources/list", nil)
}

// ReadResource implements outbound.ProviderClient.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]byte, error) {
	params, err := json.Marshal(map[string]string{"uri": uri})
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindProtocol, "marshal readResource params", err)
	}
	return c.call(ctx, "resources/read", params)
}

// ListPrompts implements outbound.ProviderClient.
func (c *Client) ListPrompts(ctx context.Context) ([]byte, error) {
	return c.call(ctx, "prompts/list", nil)
}

// GetPrompt implements outbound.ProviderClient.
func (c *Client) GetPrompt(ctx context.Context, name string, args []byte) ([]byte, error) {
	params, err := json.Marshal(map[string]json.RawMessage{
		"name":      mustMarshal(name),
		"arguments": rawOrNull(args),
	})
	if err != nil {
		return nil, gatewayerr.Wrap(gatewayerr.KindProtocol, "marshal getPrompt params", err)
	}
	return c.call(ctx, "prompts/get", params)
}

// HealthCheck implements outbound.ProviderClient: true iff a listResources
// round-trip succeeds. Never returns an error to the caller.
func (c *Client) HealthCheck(ctx context.Context) bool {
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.ListResources(hctx)
	if err != nil {
		c.logger.Debug("health check failed", "error", err)
		return false
	}
	return true
}

func mustMarshal(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return b
}

var _ outbound.ProviderClient = (*Client)(nil)
