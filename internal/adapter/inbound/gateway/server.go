// Package gateway implements the inbound MCP gateway server: a
// background reader that decodes framed requests from stdin, dispatches by
// method to a handler table, and writes response frames to stdout.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightgate-labs/mcpgateway/internal/ctxkey"
	"github.com/brightgate-labs/mcpgateway/internal/domain/catalog"
	"github.com/brightgate-labs/mcpgateway/internal/domain/conflict"
	"github.com/brightgate-labs/mcpgateway/internal/domain/gatewayerr"
	"github.com/brightgate-labs/mcpgateway/internal/domain/validation"
	"github.com/brightgate-labs/mcpgateway/internal/observability"
	"github.com/brightgate-labs/mcpgateway/internal/service/router"
	"github.com/brightgate-labs/mcpgateway/pkg/mcp"
)

// protocolVersion and serverInfo answer the initialize method with static
// metadata; initialize is handled directly, outside the router, since no
// upstream provider owns it.
const protocolVersion = "2024-11-05"

// CatalogRefresher recomputes and atomically publishes a new Snapshot,
// returning it. Implemented by the supervisor.
type CatalogRefresher func(ctx context.Context) *catalog.Snapshot

// Handlers bundles everything the Server dispatches requests to.
type Handlers struct {
	ToolRouter     *router.ToolRouter
	ResourceRouter *router.ResourceRouter
	Snapshot       func() *catalog.Snapshot
	RefreshCatalog CatalogRefresher
	KnownToolNames func() []string
	OwningProvider func(naturalName string) []string
}

// Server terminates MCP on stdin/stdout. Diagnostic logging goes to
// stderr only; stdout carries JSON-RPC exclusively.
type Server struct {
	handlers Handlers
	logger   *slog.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer

	catalogSet atomic.Bool
}

// Option configures a Server, following the outbound transport adapters'
// functional options pattern.
type Option func(*Server)

// WithMetrics attaches a Prometheus metrics recorder.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer; one span is started per
// inbound request.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// New constructs a Server.
func New(handlers Handlers, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{handlers: handlers, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads framed requests from r and writes framed responses to w until
// r is exhausted or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	fr := mcp.NewFrameReader(r)
	fw := mcp.NewFrameWriter(w)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := fr.ReadFrame()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			continue
		}
		if err := fw.WriteRaw(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) []byte {
	msg, err := mcp.DecodeMessage(line)
	if err != nil {
		return mcp.ParseErrorResponse(err.Error())
	}
	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		// A response message, not a request or notification; ignore.
		return nil
	}

	reqLogger := s.logger.With("method", req.Method)
	ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, reqLogger)

	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, req.Method)
		defer span.End()
	}

	start := time.Now()
	result, rpcErr := s.dispatch(ctx, req)
	s.recordMetrics(req.Method, rpcErr, time.Since(start))
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		if rpcErr != nil {
			span.SetStatus(codes.Error, rpcErr.Message)
			span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", rpcErr.Code))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	return encodeResponse(req.ID, result, rpcErr)
}

func (s *Server) recordMetrics(method string, rpcErr *rpcError, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if rpcErr != nil {
		status = "error"
	}
	s.metrics.RequestsTotal.WithLabelValues(method, status).Inc()
	s.metrics.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// loggerFromContext returns the per-request logger stashed by handleLine, or
// the server's own logger if none is present (e.g. in tests that call
// dispatch directly).
func (s *Server) loggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return l
	}
	return s.logger
}

func (s *Server) dispatch(ctx context.Context, req *jsonrpc.Request) (json.RawMessage, *rpcError) {
	switch req.Method {
	case "initialize":
		return s.handleInitialize()
	case "tools/list":
		return s.handleToolsList(ctx)
	case "tools/call":
		return s.handleToolsCall(ctx, req.Params)
	case "resources/list":
		return s.handleResourcesList(ctx)
	case "resources/read":
		return s.handleResourcesRead(ctx, req.Params)
	case "prompts/list":
		return s.handlePromptsList(ctx)
	case "prompts/get":
		return nil, &rpcError{Code: gatewayerr.KindNotImplemented.JSONRPCCode(), Message: "prompts/get is not implemented", DataType: string(gatewayerr.KindNotImplemented)}
	default:
		return nil, &rpcError{Code: validation.ErrCodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}
}

func (s *Server) handleInitialize() (json.RawMessage, *rpcError) {
	payload := map[string]any{
		"protocolVersion": protocolVersion,
		"serverInfo":      map[string]string{"name": "mcpgateway", "version": "0.1.0"},
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
			"prompts":   map[string]any{},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, internalError(err)
	}
	return data, nil
}

func (s *Server) ensureCatalog(ctx context.Context) *catalog.Snapshot {
	snap := s.handlers.Snapshot()
	if snap != nil && s.catalogSet.Load() {
		return snap
	}
	snap = s.handlers.RefreshCatalog(ctx)
	s.catalogSet.Store(true)
	return snap
}

func (s *Server) handleToolsList(ctx context.Context) (json.RawMessage, *rpcError) {
	snap := s.ensureCatalog(ctx)
	data, err := json.Marshal(map[string]any{"tools": snap.Tools})
	if err != nil {
		return nil, internalError(err)
	}
	return data, nil
}

func (s *Server) handleResourcesList(ctx context.Context) (json.RawMessage, *rpcError) {
	snap := s.ensureCatalog(ctx)
	data, err := json.Marshal(map[string]any{"resources": snap.Resources})
	if err != nil {
		return nil, internalError(err)
	}
	return data, nil
}

func (s *Server) handlePromptsList(ctx context.Context) (json.RawMessage, *rpcError) {
	snap := s.ensureCatalog(ctx)
	data, err := json.Marshal(map[string]any{"prompts": snap.Prompts})
	if err != nil {
		return nil, internalError(err)
	}
	return data, nil
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p toolCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		ve := validation.NewValidationError(validation.ErrCodeInvalidParams, "invalid tools/call params")
		return nil, &rpcError{Code: ve.Code, Message: ve.Message}
	}

	result, err := s.handlers.ToolRouter.Route(ctx, p.Name, p.Arguments)
	if err != nil {
		s.loggerFromContext(ctx).Warn("tool routing failed", "tool", p.Name, "error", err)
		return nil, s.resolveRouteError(err, p.Name)
	}
	return result, nil
}

type resourceReadParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (json.RawMessage, *rpcError) {
	var p resourceReadParams
	if err := json.Unmarshal(params, &p); err != nil {
		ve := validation.NewValidationError(validation.ErrCodeInvalidParams, "invalid resources/read params")
		return nil, &rpcError{Code: ve.Code, Message: ve.Message}
	}

	result, err := s.handlers.ResourceRouter.Route(ctx, p.URI)
	if err != nil {
		s.loggerFromContext(ctx).Warn("resource routing failed", "uri", p.URI, "error", err)
		return nil, s.resolveRouteError(err, p.URI)
	}
	return result, nil
}

// resolveRouteError maps a router error to a JSON-RPC -32000 error with the
// conflict resolver's structured data payload.
func (s *Server) resolveRouteError(err error, subject string) *rpcError {
	switch {
	case gatewayerr.Is(err, gatewayerr.KindAmbiguousTool):
		owners := s.handlers.OwningProvider(subject)
		payload := conflict.BuildAmbiguousTool(subject, owners)
		return &rpcError{Code: gatewayerr.KindAmbiguousTool.JSONRPCCode(), Message: err.Error(), Data: payload}
	case gatewayerr.Is(err, gatewayerr.KindToolNotFound):
		payload := conflict.BuildToolNotFound(subject, s.handlers.KnownToolNames())
		return &rpcError{Code: gatewayerr.KindToolNotFound.JSONRPCCode(), Message: err.Error(), Data: payload}
	case gatewayerr.Is(err, gatewayerr.KindProviderUnavailable):
		payload := conflict.BuildProviderUnavailable(subject)
		return &rpcError{Code: gatewayerr.KindProviderUnavailable.JSONRPCCode(), Message: err.Error(), Data: payload}
	case gatewayerr.Is(err, gatewayerr.KindValidation):
		return &rpcError{Code: validation.ErrCodeInvalidParams, Message: err.Error()}
	case gatewayerr.Is(err, gatewayerr.KindProvider):
		return &rpcError{Code: gatewayerr.KindProvider.JSONRPCCode(), Message: err.Error()}
	default:
		return internalError(err)
	}
}

func internalError(err error) *rpcError {
	return &rpcError{Code: validation.ErrCodeInternalError, Message: err.Error()}
}

type rpcError struct {
	Code     int
	Message  string
	DataType string
	Data     any
}

func encodeResponse(id jsonrpc.ID, result json.RawMessage, rpcErr *rpcError) []byte {
	type errObj struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    any    `json:"data,omitempty"`
	}
	type respObj struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      jsonrpc.ID      `json:"id"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *errObj         `json:"error,omitempty"`
	}

	resp := respObj{JSONRPC: "2.0", ID: id}
	if rpcErr != nil {
		data := rpcErr.Data
		if data == nil && rpcErr.DataType != "" {
			data = map[string]string{"type": rpcErr.DataType}
		}
		resp.Error = &errObj{Code: rpcErr.Code, Message: rpcErr.Message, Data: data}
	} else {
		resp.Result = result
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return mcp.ParseErrorResponse("failed to encode response")
	}
	return out
}
