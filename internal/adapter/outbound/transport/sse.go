package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/brightgate-labs/mcpgateway/internal/domain/gatewayerr"
	"github.com/brightgate-labs/mcpgateway/internal/port/outbound"
	"github.com/brightgate-labs/mcpgateway/pkg/mcp"
)

// Option configures an SSE transport via the functional options pattern.
type Option func(*SSE)

// WithHTTPClient overrides the *http.Client used for all three endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SSE) { s.httpClient = c }
}

// WithTimeout sets the per-request default timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *SSE) { s.defaultTimeout = d }
}

const maxSSEEventBytes = 10 * 1024 * 1024

// SSE connects to an upstream MCP server over the adapter-specific
// three-endpoint HTTP contract: POST <messageURL> for requests, GET <sseURL>
// for a text/event-stream of replies, GET <healthURL> as a connect-time
// precheck. The three URLs are derived from one configured endpoint by
// substituting the "/sse" suffix.
type SSE struct {
	messageURL     string
	sseURL         string
	healthURL      string
	httpClient     *http.Client
	defaultTimeout time.Duration
	logger         *slog.Logger

	mu           sync.Mutex
	streamCancel context.CancelFunc

	replies chan outbound.Incoming
}

// NewSSE constructs an SSE transport for the given base endpoint, which must
// end in "/sse" (e.g. "https://host/mcp/sse").
func NewSSE(endpoint string, logger *slog.Logger, opts ...Option) *SSE {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimSuffix(endpoint, "/sse")
	s := &SSE{
		messageURL:     base + "/message",
		sseURL:         endpoint,
		healthURL:      base + "/health",
		defaultTimeout: 60 * time.Second,
		logger:         logger,
		replies:        make(chan outbound.Incoming, 16),
	}
	s.httpClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			MaxIdleConns:    10,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect performs the GET <healthURL> precheck (any status >= 400 fails
// connect) and starts the SSE reader goroutine against <sseURL>.
func (s *SSE) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.healthURL, nil)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindConnection, "build health request", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindConnection, "health check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return gatewayerr.New(gatewayerr.KindConnection, fmt.Sprintf("health check returned status %d", resp.StatusCode))
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	streamReq, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.sseURL, nil)
	if err != nil {
		cancel()
		return gatewayerr.Wrap(gatewayerr.KindConnection, "build sse request", err)
	}
	streamReq.Header.Set("Accept", "text/event-stream")

	streamResp, err := s.httpClient.Do(streamReq)
	if err != nil {
		cancel()
		return gatewayerr.Wrap(gatewayerr.KindConnection, "open sse stream", err)
	}
	if streamResp.StatusCode >= 400 {
		_ = streamResp.Body.Close()
		cancel()
		return gatewayerr.New(gatewayerr.KindConnection, fmt.Sprintf("sse stream returned status %d", streamResp.StatusCode))
	}

	s.mu.Lock()
	s.streamCancel = cancel
	s.mu.Unlock()

	go s.readEvents(streamResp.Body)

	return nil
}

// readEvents parses the text/event-stream body, decoding each event's "data"
// field as a JSON-RPC response and forwarding it on the replies channel.
func (s *SSE) readEvents(body io.ReadCloser) {
	defer body.Close()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxSSEEventBytes)

	var dataBuf bytes.Buffer
	flush := func() {
		if dataBuf.Len() == 0 {
			return
		}
		data := make([]byte, dataBuf.Len())
		copy(data, dataBuf.Bytes())
		dataBuf.Reset()
		msg, err := mcp.DecodeMessage(data)
		if err != nil {
			s.logger.Warn("discarding malformed sse event", "error", err)
			return
		}
		resp, ok := msg.(*jsonrpc.Response)
		if !ok {
			return
		}
		s.replies <- outbound.Incoming{Response: resp}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "data:"):
			dataBuf.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// ignore event:, id:, retry: and comment lines
		}
	}
	flush()
	s.replies <- outbound.Incoming{Err: fmt.Errorf("sse stream closed")}
	close(s.replies)
}

// SetDefaultTimeout overrides the per-request deadline applied to Send. A
// non-positive d is ignored.
func (s *SSE) SetDefaultTimeout(d time.Duration) {
	if d > 0 {
		s.defaultTimeout = d
	}
}

// Replies returns the channel of decoded replies.
func (s *SSE) Replies() <-chan outbound.Incoming {
	return s.replies
}

// Send POSTs the request to <messageURL>. The reply arrives asynchronously
// on the already-open SSE stream, not in this call's HTTP response body.
func (s *SSE) Send(ctx context.Context, req *jsonrpc.Request) error {
	body, err := mcp.EncodeMessage(req)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindTransport, "encode request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.defaultTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.messageURL, bytes.NewReader(body))
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindTransport, "build post request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return gatewayerr.Wrap(gatewayerr.KindTransport, "post request", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 400 {
		return gatewayerr.New(gatewayerr.KindTransport, fmt.Sprintf("message endpoint returned status %d", resp.StatusCode))
	}
	return nil
}

// Disconnect stops the SSE reader goroutine. Idempotent.
func (s *SSE) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.streamCancel
	s.streamCancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

var _ outbound.Transport = (*SSE)(nil)
