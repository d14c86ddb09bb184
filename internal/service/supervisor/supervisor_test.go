package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/brightgate-labs/mcpgateway/internal/config"
	"github.com/brightgate-labs/mcpgateway/internal/domain/provider"
	"github.com/brightgate-labs/mcpgateway/internal/port/outbound"
	"github.com/brightgate-labs/mcpgateway/internal/service/demux"
	"github.com/brightgate-labs/mcpgateway/internal/service/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTransport answers every request with an empty-list result for
// whichever method was sent, letting the aggregator build a stable,
// conflict-free, zero-tool snapshot without any real process or socket.
type fakeTransport struct {
	replies   chan outbound.Incoming
	failConnect bool
}

func newFakeTransport(failConnect bool) *fakeTransport {
	return &fakeTransport{replies: make(chan outbound.Incoming, 4), failConnect: failConnect}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.failConnect {
		return errors.New("connect refused")
	}
	return nil
}

func (f *fakeTransport) Send(ctx context.Context, req *jsonrpc.Request) error {
	var result json.RawMessage
	switch req.Method {
	case "tools/list":
		result = json.RawMessage(`{"tools":[]}`)
	case "resources/list":
		result = json.RawMessage(`{"resources":[]}`)
	case "prompts/list":
		result = json.RawMessage(`{"prompts":[]}`)
	default:
		result = json.RawMessage(`{}`)
	}
	go func() {
		f.replies <- outbound.Incoming{Response: &jsonrpc.Response{ID: req.ID, Result: result}}
	}()
	return nil
}

func (f *fakeTransport) Replies() <-chan outbound.Incoming { return f.replies }
func (f *fakeTransport) Disconnect(ctx context.Context) error {
	close(f.replies)
	return nil
}

func stubAdapterType(name string, failConnect bool) provider.AdapterType {
	return provider.AdapterType{
		Name:          name,
		DisplayName:   name,
		TransportKind: provider.TransportStdio,
		CreateTransport: func(cfg provider.Config) (outbound.Transport, error) {
			return newFakeTransport(failConnect), nil
		},
	}
}

func TestStartZeroProvidersConnectedFails(t *testing.T) {
	reg := registry.New(testLogger())
	_ = reg.Register(stubAdapterType("alpha", true))

	sup := New(reg, testLogger())
	cfg := &config.Config{EnabledProviders: []string{"alpha"}}
	cfg.SetDefaults()

	if err := sup.Start(context.Background(), cfg); err == nil {
		t.Error("expected Start to fail when every provider fails to connect")
	}
}

func TestStartPartialFailureStillSucceeds(t *testing.T) {
	reg := registry.New(testLogger())
	_ = reg.Register(stubAdapterType("alpha", false))
	_ = reg.Register(stubAdapterType("beta", true))

	sup := New(reg, testLogger())
	cfg := &config.Config{EnabledProviders: []string{"alpha", "beta"}}
	cfg.SetDefaults()

	if err := sup.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	health := sup.Health()
	if health.ConfiguredCount != 1 {
		t.Errorf("ConfiguredCount = %d, want 1 (only the connected provider is tracked)", health.ConfiguredCount)
	}
	if health.ConnectedCount != 1 {
		t.Errorf("ConnectedCount = %d, want 1", health.ConnectedCount)
	}
}

func TestRefreshCatalogSkipsUnchangedVersion(t *testing.T) {
	reg := registry.New(testLogger())
	_ = reg.Register(stubAdapterType("alpha", false))

	sup := New(reg, testLogger())
	cfg := &config.Config{EnabledProviders: []string{"alpha"}}
	cfg.SetDefaults()

	if err := sup.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	first := sup.Snapshot()
	second := sup.RefreshCatalog(context.Background())
	if first != second {
		t.Error("expected RefreshCatalog to return the same snapshot pointer when nothing changed")
	}
}

func TestStopDisconnectsAndClearsProviders(t *testing.T) {
	reg := registry.New(testLogger())
	_ = reg.Register(stubAdapterType("alpha", false))

	sup := New(reg, testLogger())
	cfg := &config.Config{EnabledProviders: []string{"alpha"}}
	cfg.SetDefaults()

	if err := sup.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := sup.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := sup.Health(); got.ConfiguredCount != 0 {
		t.Errorf("ConfiguredCount after Stop = %d, want 0", got.ConfiguredCount)
	}
	// Stop must be idempotent.
	if err := sup.Stop(context.Background()); err != nil {
		t.Errorf("second Stop should be a no-op, got: %v", err)
	}
}

func TestStartAppliesConfiguredTimeouts(t *testing.T) {
	reg := registry.New(testLogger())
	_ = reg.Register(stubAdapterType("alpha", false))

	sup := New(reg, testLogger())
	cfg := &config.Config{EnabledProviders: []string{"alpha"}}
	cfg.SetDefaults()
	cfg.GlobalSettings.Timeouts.RequestTimeoutSeconds = 5
	cfg.GlobalSettings.Timeouts.ConnectTimeoutSeconds = 2

	if err := sup.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	if sup.requestTimeout != 5*time.Second {
		t.Errorf("requestTimeout = %v, want 5s", sup.requestTimeout)
	}
	if sup.connectTimeout != 2*time.Second {
		t.Errorf("connectTimeout = %v, want 2s", sup.connectTimeout)
	}

	inst, ok := sup.lookup("alpha")
	if !ok {
		t.Fatal("expected alpha to be connected")
	}
	client, ok := inst.Client.(*demux.Client)
	if !ok {
		t.Fatalf("expected *demux.Client, got %T", inst.Client)
	}
	if got := client.Timeout(); got != 5*time.Second {
		t.Errorf("demux client timeout = %v, want 5s", got)
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	if d := backoffDelay(0); d != backoffBase {
		t.Errorf("backoffDelay(0) = %v, want %v", d, backoffBase)
	}
	if d := backoffDelay(1); d != 2*backoffBase {
		t.Errorf("backoffDelay(1) = %v, want %v", d, 2*backoffBase)
	}
	if d := backoffDelay(20); d != backoffCap {
		t.Errorf("backoffDelay(20) = %v, want capped at %v", d, backoffCap)
	}
}

func TestKnownToolNamesAndOwningProviders(t *testing.T) {
	reg := registry.New(testLogger())
	_ = reg.Register(stubAdapterType("alpha", false))

	sup := New(reg, testLogger())
	cfg := &config.Config{EnabledProviders: []string{"alpha"}}
	cfg.SetDefaults()

	if err := sup.Start(context.Background(), cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Stop(context.Background())

	if names := sup.KnownToolNames(); names == nil {
		t.Error("expected a non-nil (possibly empty) slice of known tool names")
	}
	if owners := sup.OwningProviders("search"); len(owners) != 0 {
		t.Errorf("expected no owners for a name nobody published, got %v", owners)
	}

	// give the async fake-transport reply a moment in case of scheduling
	// jitter on a loaded CI box, so Snapshot() reflects the first cycle.
	time.Sleep(10 * time.Millisecond)
}
