package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/brightgate-labs/mcpgateway/internal/domain/catalog"
	"github.com/brightgate-labs/mcpgateway/internal/domain/gatewayerr"
	"github.com/brightgate-labs/mcpgateway/internal/domain/provider"
	"github.com/brightgate-labs/mcpgateway/internal/domain/validation"
	"github.com/brightgate-labs/mcpgateway/internal/service/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct {
	result []byte
	err    error
}

func (f *fakeClient) ListTools(ctx context.Context) ([]byte, error) { return nil, nil }
func (f *fakeClient) CallTool(ctx context.Context, name string, args []byte) ([]byte, error) {
	return f.result, f.err
}
func (f *fakeClient) ListResources(ctx context.Context) ([]byte, error) { return nil, nil }
func (f *fakeClient) ReadResource(ctx context.Context, uri string) ([]byte, error) {
	return f.result, f.err
}
func (f *fakeClient) ListPrompts(ctx context.Context) ([]byte, error) { return nil, nil }
func (f *fakeClient) GetPrompt(ctx context.Context, name string, args []byte) ([]byte, error) {
	return nil, nil
}
func (f *fakeClient) HealthCheck(ctx context.Context) bool { return true }

func testServer() *Server {
	snap := &catalog.Snapshot{
		Tools:          []catalog.Tool{{Name: "search", Provider: "alpha"}},
		ToolByName:     map[string]catalog.Tool{"search": {Name: "search", Provider: "alpha"}},
		ProviderByTool: map[string]string{"search": "alpha"},
		Conflicts:      map[string]struct{}{},
	}
	instances := map[string]*provider.Instance{
		"alpha": {
			Provider: provider.Provider{Name: "alpha", State: provider.StateConnected},
			Client:   &fakeClient{result: []byte(`{"ok":true}`)},
		},
	}
	lookup := func(name string) (*provider.Instance, bool) { i, ok := instances[name]; return i, ok }

	handlers := Handlers{
		ToolRouter:     router.NewToolRouter(func() *catalog.Snapshot { return snap }, lookup),
		ResourceRouter: router.NewResourceRouter(lookup),
		Snapshot:       func() *catalog.Snapshot { return snap },
		RefreshCatalog: func(ctx context.Context) *catalog.Snapshot { return snap },
		KnownToolNames: func() []string { return []string{"search"} },
		OwningProvider: func(name string) []string { return snap.OwningProviders(name) },
	}
	return New(handlers, testLogger())
}

func TestHandleInitialize(t *testing.T) {
	s := testServer()
	line := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	out := s.handleLine(context.Background(), line)
	var resp struct {
		Result struct {
			ProtocolVersion string `json:"protocolVersion"`
		} `json:"result"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", resp.Result.ProtocolVersion, protocolVersion)
	}
}

func TestHandleToolsCallSuccess(t *testing.T) {
	s := testServer()
	line := []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search","arguments":{}}}`)
	out := s.handleLine(context.Background(), line)
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(resp.Result) != `{"ok":true}` {
		t.Errorf("result = %s, want {\"ok\":true}", resp.Result)
	}
}

func TestHandleToolsCallUnknownTool(t *testing.T) {
	s := testServer()
	line := []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)
	out := s.handleLine(context.Background(), line)
	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected an error response for an unknown tool")
	}
	if resp.Error.Code != gatewayerr.KindToolNotFound.JSONRPCCode() {
		t.Errorf("code = %d, want %d", resp.Error.Code, gatewayerr.KindToolNotFound.JSONRPCCode())
	}
}

func TestHandleToolsCallMalformedParams(t *testing.T) {
	s := testServer()
	line := []byte(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":"not-an-object"}`)
	out := s.handleLine(context.Background(), line)
	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != validation.ErrCodeInvalidParams {
		t.Errorf("expected ErrCodeInvalidParams, got %+v", resp.Error)
	}
}

func TestHandlePromptsGetNotImplemented(t *testing.T) {
	s := testServer()
	line := []byte(`{"jsonrpc":"2.0","id":5,"method":"prompts/get","params":{}}`)
	out := s.handleLine(context.Background(), line)
	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected prompts/get to be reported as unimplemented")
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	s := testServer()
	line := []byte(`{"jsonrpc":"2.0","id":6,"method":"bogus/method","params":{}}`)
	out := s.handleLine(context.Background(), line)
	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != validation.ErrCodeMethodNotFound {
		t.Errorf("expected ErrCodeMethodNotFound, got %+v", resp.Error)
	}
}

func TestHandleLineParseError(t *testing.T) {
	s := testServer()
	out := s.handleLine(context.Background(), []byte(`not json at all`))
	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != validation.ErrCodeParseError {
		t.Errorf("expected ErrCodeParseError, got %+v", resp.Error)
	}
}

func TestHandleResourcesReadSuccess(t *testing.T) {
	s := testServer()
	line := []byte(`{"jsonrpc":"2.0","id":7,"method":"resources/read","params":{"uri":"alpha://file.txt"}}`)
	out := s.handleLine(context.Background(), line)
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	if string(resp.Result) != `{"ok":true}` {
		t.Errorf("result = %s, want {\"ok\":true}", resp.Result)
	}
}
