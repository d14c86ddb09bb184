// Package supervisor orchestrates provider connection at startup, periodic
// health/backoff maintenance, catalog (re)computation, and shutdown.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brightgate-labs/mcpgateway/internal/config"
	"github.com/brightgate-labs/mcpgateway/internal/domain/catalog"
	"github.com/brightgate-labs/mcpgateway/internal/domain/provider"
	"github.com/brightgate-labs/mcpgateway/internal/observability"
	"github.com/brightgate-labs/mcpgateway/internal/service/aggregator"
	"github.com/brightgate-labs/mcpgateway/internal/service/demux"
	"github.com/brightgate-labs/mcpgateway/internal/service/registry"
	"github.com/brightgate-labs/mcpgateway/internal/service/router"
)

const (
	// backoffBase and backoffCap implement delay = min(base*2^retry, cap).
	backoffBase = 500 * time.Millisecond
	backoffCap  = 30 * time.Second

	// stabilityWindow is how long a provider must stay healthy before its
	// reconnect/backoff counter resets.
	stabilityWindow = 2 * time.Minute

	healthCheckInterval = 30 * time.Second

	// defaultConnectTimeout is the connect deadline used until Start
	// overrides it from cfg.GlobalSettings.Timeouts.ConnectTimeoutSeconds.
	defaultConnectTimeout = 10 * time.Second
)

type providerState struct {
	instance    *provider.Instance
	retryCount  int
	lastHealthy time.Time
}

// Supervisor owns the provider map, the aggregators/routers/conflict
// resolver built once providers are up, and the published catalog snapshot.
type Supervisor struct {
	registry *registry.Registry
	agg      *aggregator.Aggregator
	logger   *slog.Logger
	metrics  *observability.Metrics

	requestTimeout time.Duration
	connectTimeout time.Duration

	mu        sync.RWMutex
	providers map[string]*providerState

	ToolRouter     *router.ToolRouter
	ResourceRouter *router.ResourceRouter

	snapshot atomic.Pointer[catalog.Snapshot]

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Supervisor.
func New(reg *registry.Registry, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	sup := &Supervisor{
		registry:       reg,
		agg:            aggregator.New(logger),
		logger:         logger,
		providers:      make(map[string]*providerState),
		requestTimeout: demux.DefaultTimeout,
		connectTimeout: defaultConnectTimeout,
	}
	sup.snapshot.Store(catalog.Empty())
	sup.ToolRouter = router.NewToolRouter(sup.Snapshot, sup.lookup)
	sup.ResourceRouter = router.NewResourceRouter(sup.lookup)
	return sup
}

// WithMetrics attaches a Prometheus metrics recorder and returns the
// Supervisor for chaining, mirroring the gateway server's functional-options
// construction.
func (s *Supervisor) WithMetrics(m *observability.Metrics) *Supervisor {
	s.metrics = m
	return s
}

// Snapshot returns the currently published catalog snapshot.
func (s *Supervisor) Snapshot() *catalog.Snapshot {
	return s.snapshot.Load()
}

func (s *Supervisor) lookup(name string) (*provider.Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.providers[name]
	if !ok {
		return nil, false
	}
	return st.instance, true
}

// Start connects every enabled provider named in cfg, tolerating per-provider
// failure (logged, continue); if zero connect, Start fails. On success it
// computes the first aggregated snapshot and starts the background
// health/backoff loop.
func (s *Supervisor) Start(ctx context.Context, cfg *config.Config) error {
	if secs := cfg.GlobalSettings.Timeouts.RequestTimeoutSeconds; secs > 0 {
		s.requestTimeout = time.Duration(secs) * time.Second
	}
	if secs := cfg.GlobalSettings.Timeouts.ConnectTimeoutSeconds; secs > 0 {
		s.connectTimeout = time.Duration(secs) * time.Second
	}

	connected := 0

	for _, name := range cfg.EnabledProviders {
		settings := cfg.ProviderSettings[name]
		inst, err := s.registry.CreateProvider(name, provider.Config(settings))
		if err != nil {
			s.logger.Error("provider setup failed, skipping", "provider", name, "error", err)
			continue
		}

		if err := s.connectInstance(ctx, inst); err != nil {
			s.logger.Error("provider connect failed, skipping", "provider", name, "error", err)
			continue
		}

		s.mu.Lock()
		s.providers[name] = &providerState{instance: inst, lastHealthy: time.Now()}
		s.mu.Unlock()
		connected++
	}

	if connected == 0 {
		return fmt.Errorf("supervisor: start failed, zero providers connected")
	}

	s.recordConnectionMetrics()
	s.refreshCatalog(ctx)

	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.maintenanceLoop()

	return nil
}

// timeoutSetter is implemented by transports (e.g. SSE) whose per-request
// deadline is independently configurable rather than inherited from the
// demux's own call timeout.
type timeoutSetter interface {
	SetDefaultTimeout(time.Duration)
}

func (s *Supervisor) connectInstance(ctx context.Context, inst *provider.Instance) error {
	transport, err := s.registry.BuildTransport(inst)
	if err != nil {
		return err
	}
	if ts, ok := transport.(timeoutSetter); ok {
		ts.SetDefaultTimeout(s.requestTimeout)
	}
	client := demux.New(transport, s.logger)
	client.SetTimeout(s.requestTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	inst.State = provider.StateConnecting
	if err := client.Connect(connectCtx); err != nil {
		inst.State = provider.StateFailed
		inst.LastError = err.Error()
		return err
	}
	inst.Client = client
	inst.State = provider.StateConnected
	return nil
}

// RefreshCatalog recomputes and atomically publishes a new snapshot,
// skipping the publish if the content hash is unchanged from the current
// one (the xxhash-backed "nothing actually changed" short-circuit).
func (s *Supervisor) RefreshCatalog(ctx context.Context) *catalog.Snapshot {
	return s.refreshCatalog(ctx)
}

func (s *Supervisor) refreshCatalog(ctx context.Context) *catalog.Snapshot {
	s.mu.RLock()
	instances := make([]*provider.Instance, 0, len(s.providers))
	for _, st := range s.providers {
		instances = append(instances, st.instance)
	}
	s.mu.RUnlock()

	next := s.agg.Build(ctx, instances)
	prev := s.snapshot.Load()
	if prev != nil && prev.Version == next.Version {
		return prev
	}
	s.snapshot.Store(next)
	s.recordCatalogMetrics(next)
	return next
}

func (s *Supervisor) recordCatalogMetrics(snap *catalog.Snapshot) {
	if s.metrics == nil {
		return
	}
	s.metrics.PublishedTools.Set(float64(len(snap.ToolByName)))
	s.metrics.CatalogConflicts.Set(float64(len(snap.Conflicts)))
}

func (s *Supervisor) recordConnectionMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.ConnectedProviders.Set(float64(s.Health().ConnectedCount))
}

// KnownToolNames returns all published tool names in the current snapshot,
// for the conflict resolver's not-found similarity search.
func (s *Supervisor) KnownToolNames() []string {
	snap := s.Snapshot()
	names := make([]string, 0, len(snap.ToolByName))
	for n := range snap.ToolByName {
		names = append(names, n)
	}
	return names
}

// OwningProviders returns the provider names that published naturalName,
// for the conflict resolver's ambiguous_tool payload.
func (s *Supervisor) OwningProviders(naturalName string) []string {
	return s.Snapshot().OwningProviders(naturalName)
}

// maintenanceLoop periodically health-checks connected providers and
// attempts reconnection of failed ones with exponential backoff, resetting
// a provider's backoff counter after it has stayed healthy for
// stabilityWindow.
func (s *Supervisor) maintenanceLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runMaintenanceCycle()
		}
	}
}

func (s *Supervisor) runMaintenanceCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.mu.RLock()
	states := make([]*providerState, 0, len(s.providers))
	for _, st := range s.providers {
		states = append(states, st)
	}
	s.mu.RUnlock()

	changed := false
	for _, st := range states {
		if st.instance.Connected() {
			if st.instance.HealthCheck(ctx) {
				if time.Since(st.lastHealthy) >= stabilityWindow {
					st.retryCount = 0
				}
				continue
			}
			s.logger.Warn("provider failed health check, marking disconnected", "provider", st.instance.Name)
			st.instance.State = provider.StateDisconnected
			changed = true
			continue
		}

		delay := backoffDelay(st.retryCount)
		if time.Since(st.lastHealthy) < delay {
			continue
		}
		if err := s.connectInstance(ctx, st.instance); err != nil {
			st.retryCount++
			s.logger.Warn("provider reconnect attempt failed", "provider", st.instance.Name, "retry", st.retryCount, "error", err)
			continue
		}
		st.lastHealthy = time.Now()
		st.retryCount = 0
		changed = true
	}

	if changed {
		s.recordConnectionMetrics()
		s.refreshCatalog(ctx)
	}
}

func backoffDelay(retryCount int) time.Duration {
	d := backoffBase
	for i := 0; i < retryCount && d < backoffCap; i++ {
		d *= 2
	}
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

// Health is the aggregate health snapshot the CLI/ops layer can poll.
// ConfiguredCount counts the providers held by the supervisor, i.e. those
// that connected during Start; enabled providers that failed there are not
// included.
type Health struct {
	ConfiguredCount int
	ConnectedCount  int
}

// Health reports how many of the supervisor's providers are currently
// connected.
func (s *Supervisor) Health() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := Health{ConfiguredCount: len(s.providers)}
	for _, st := range s.providers {
		if st.instance.Connected() {
			h.ConnectedCount++
		}
	}
	return h
}

// Stop disconnects every provider, logging but swallowing per-provider
// errors, then clears the provider map. Idempotent.
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.stopCh != nil {
		select {
		case <-s.stopCh:
		default:
			close(s.stopCh)
		}
		s.wg.Wait()
	}

	s.mu.Lock()
	states := s.providers
	s.providers = make(map[string]*providerState)
	s.mu.Unlock()

	for _, st := range states {
		if st.instance.Client == nil {
			continue
		}
		if err := demuxDisconnect(ctx, st.instance); err != nil {
			s.logger.Warn("error disconnecting provider", "provider", st.instance.Name, "error", err)
		}
	}
	return nil
}

func demuxDisconnect(ctx context.Context, inst *provider.Instance) error {
	d, ok := inst.Client.(*demux.Client)
	if !ok {
		return nil
	}
	return d.Disconnect(ctx)
}
