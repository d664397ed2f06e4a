package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/gridlink/tagbridge/pkg/config"
	"github.com/gridlink/tagbridge/pkg/discovery"
	"github.com/gridlink/tagbridge/pkg/log"
	"github.com/gridlink/tagbridge/pkg/metrics"
	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/northbound"
	"github.com/gridlink/tagbridge/pkg/scheduler"
	"github.com/gridlink/tagbridge/pkg/southbound"
	"github.com/gridlink/tagbridge/pkg/store"
	"github.com/gridlink/tagbridge/pkg/subscription"
	"github.com/gridlink/tagbridge/pkg/supervisor"
	"github.com/gridlink/tagbridge/pkg/version"
)

// Status is a snapshot of the running bridge.
type Status struct {
	State       State
	Southbound  supervisor.State
	SessionID   string
	LastError   error
	Supervisor  supervisor.Stats
	Sync        scheduler.Stats
	StoreTags   int
	Nodes       int
	Subscribers int
	Addr        string
	Advertised  bool
}

// release undoes one startup step.
type release struct {
	name string
	fn   func(ctx context.Context) error
}

// Bridge runs the southbound-to-northbound pipeline.
type Bridge struct {
	cfg         *config.Config
	adapter     southbound.Adapter
	logger      *slog.Logger
	baseLogger  *slog.Logger
	extraEvents log.Logger
	metrics     *metrics.Metrics
	advertiser  discovery.Advertiser

	space *model.AddressSpace
	nodes []*model.Node
	store *store.Store

	mu         sync.Mutex
	state      State
	releases   []release
	sup        *supervisor.Supervisor
	sched      *scheduler.Scheduler
	north      *northbound.Server
	advertised bool
}

// New validates cfg and synthesizes the address space. A duplicate or
// invalid tag declaration is returned as an error and nothing is started.
// A nil cfg selects config.Default.
func New(cfg *config.Config, adapter southbound.Adapter, opts ...Option) (*Bridge, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if adapter == nil {
		return nil, fmt.Errorf("%w: no southbound adapter", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	b := &Bridge{cfg: cfg, adapter: adapter}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	b.baseLogger = b.logger
	b.logger = b.logger.With("component", "bridge")
	if b.metrics == nil {
		b.metrics = metrics.New()
	}
	if b.advertiser == nil {
		b.advertiser = discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
	}

	decls, err := cfg.Decls()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	b.space = model.NewAddressSpace(cfg.AddressSpace.Namespace)
	b.nodes, err = model.Synthesize(b.space, decls)
	if err != nil {
		return nil, fmt.Errorf("address space synthesis failed: %w", err)
	}

	b.store = store.New()
	if err := b.metrics.RegisterStore(b.store); err != nil {
		return nil, fmt.Errorf("failed to register store metrics: %w", err)
	}

	b.logger.Info("address space synthesized",
		"namespace", cfg.AddressSpace.Namespace,
		"folders", len(b.space.Folders()),
		"nodes", len(b.nodes))
	return b, nil
}

// Start starts every component. The components keep running after ctx
// ends; only Stop ends them. If a step fails, the steps before it are
// undone and the error is returned.
func (b *Bridge) Start(ctx context.Context) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateIdle {
		return ErrAlreadyStarted
	}
	b.state = StateStarting

	defer func() {
		if err != nil {
			b.logger.Error("startup failed, releasing started components", "error", err)
			_ = b.unwind(context.WithoutCancel(ctx))
			b.state = StateStopped
		}
	}()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.push("context", func(context.Context) error {
		cancel()
		return nil
	})

	events, err := b.openEventLog()
	if err != nil {
		return err
	}

	b.north = northbound.New(b.space, northbound.Config{
		Listen:          b.cfg.Northbound.Listen,
		MinInterval:     b.cfg.Northbound.Subscription.MinInterval,
		MaxInterval:     b.cfg.Northbound.Subscription.MaxInterval,
		Subscription:    b.subscriptionConfig(),
		Metrics:         b.metrics.Handler(),
		SouthboundState: b.southboundState,
		Version:         version.Current,
		Observer:        b.metrics,
		Logger:          b.baseLogger,
	})

	b.sup = supervisor.New(b.adapter, b.cfg.TagIDs(), b.store, supervisor.Config{
		Backoff:        b.cfg.BackoffConfig(),
		ConnectTimeout: b.cfg.Southbound.ConnectTimeout,
		Logger:         b.baseLogger,
		EventLogger:    events,
		Observer:       b.metrics,
	})
	if err := b.sup.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start southbound: %w", err)
	}
	b.push("southbound", func(context.Context) error {
		return b.sup.Stop(b.cfg.ShutdownTimeout)
	})

	b.sched = scheduler.New(b.store, b.nodes, b.north, scheduler.Config{
		Period:       b.cfg.Sync.Period,
		InitialDelay: b.cfg.Sync.InitialDelay,
		Mode:         b.cfg.SyncMode(),
		Logger:       b.baseLogger,
		EventLogger:  events,
		Observer:     b.metrics,
	})
	syncCtx, stopSync := context.WithCancel(runCtx)
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		_ = b.sched.Run(syncCtx)
	}()
	b.push("sync", func(ctx context.Context) error {
		stopSync()
		select {
		case <-syncDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if err := b.north.Start(ctx); err != nil {
		return fmt.Errorf("failed to start northbound: %w", err)
	}
	b.push("northbound", b.north.Stop)

	b.advertise(ctx)

	b.state = StateRunning
	b.logger.Info("bridge started",
		"southbound", b.cfg.Southbound.Kind,
		"addr", b.north.Addr().String(),
		"sync_period", b.cfg.Sync.Period,
		"sync_mode", b.cfg.SyncMode().String())
	return nil
}

// Stop stops every component in reverse start order. ctx bounds the
// northbound and sync shutdown; the southbound is bounded by the
// configured shutdown timeout. Stopping a stopped bridge is a no-op.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateStopped:
		return nil
	case StateRunning:
	default:
		return ErrNotStarted
	}

	b.state = StateStopping
	b.logger.Info("bridge stopping")
	err := b.unwind(ctx)
	b.state = StateStopped
	if err != nil {
		b.logger.Warn("bridge stopped with errors", "error", err)
		return err
	}
	b.logger.Info("bridge stopped")
	return nil
}

func (b *Bridge) push(name string, fn func(ctx context.Context) error) {
	b.releases = append(b.releases, release{name: name, fn: fn})
}

// unwind runs the release steps in reverse and joins their errors.
func (b *Bridge) unwind(ctx context.Context) error {
	var errs []error
	for i := len(b.releases) - 1; i >= 0; i-- {
		r := b.releases[i]
		if err := r.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	b.releases = nil
	return errors.Join(errs...)
}

func (b *Bridge) openEventLog() (log.Logger, error) {
	var loggers []log.Logger
	if b.extraEvents != nil {
		loggers = append(loggers, b.extraEvents)
	}
	if b.cfg.EventLog != "" {
		fl, err := log.NewFileLogger(b.cfg.EventLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open event log: %w", err)
		}
		b.push("event log", func(context.Context) error { return fl.Close() })
		loggers = append(loggers, fl)
		b.logger.Info("event log opened", "path", b.cfg.EventLog)
	}

	switch len(loggers) {
	case 0:
		return nil, nil
	case 1:
		return loggers[0], nil
	default:
		return log.NewMultiLogger(loggers...), nil
	}
}

func (b *Bridge) subscriptionConfig() subscription.Config {
	sc := subscription.DefaultConfig()
	sc.MaxSubscriptions = b.cfg.Northbound.Subscription.MaxSubscriptions
	return sc
}

// advertise announces the northbound endpoint. mDNS is optional: a
// failure is logged and the bridge keeps running.
func (b *Bridge) advertise(ctx context.Context) {
	if !b.cfg.Northbound.Advertise {
		return
	}
	info := b.bridgeInfo()
	if err := b.advertiser.Advertise(ctx, info); err != nil {
		b.logger.Warn("mDNS advertisement failed", "instance", info.Instance, "error", err)
		return
	}
	b.advertised = true
	b.push("advertisement", func(context.Context) error {
		b.advertised = false
		return b.advertiser.Stop()
	})
	b.logger.Info("advertising bridge", "instance", info.Instance, "port", info.Port)
}

func (b *Bridge) bridgeInfo() *discovery.BridgeInfo {
	instance := b.cfg.Northbound.Instance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "tagbridge"
		}
		instance = host
	}

	folders := b.space.Folders()
	names := make([]string, len(folders))
	for i, f := range folders {
		names[i] = f.Name()
	}

	return &discovery.BridgeInfo{
		Instance:  discovery.InstanceName(instance),
		Port:      listenPort(b.north.Addr()),
		Version:   version.Current,
		Namespace: b.space.Namespace(),
		Folders:   names,
		Tags:      len(b.nodes),
	}
}

func listenPort(addr net.Addr) uint16 {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return 0
}

func (b *Bridge) southboundState() string {
	if b.sup == nil {
		return supervisor.StateIdle.String()
	}
	return b.sup.State().String()
}

// Store returns the value store.
func (b *Bridge) Store() *store.Store { return b.store }

// AddressSpace returns the synthesized address space.
func (b *Bridge) AddressSpace() *model.AddressSpace { return b.space }

// Nodes returns the nodes in declaration order.
func (b *Bridge) Nodes() []*model.Node {
	result := make([]*model.Node, len(b.nodes))
	copy(result, b.nodes)
	return result
}

// Metrics returns the metrics registry in use.
func (b *Bridge) Metrics() *metrics.Metrics { return b.metrics }

// Config returns the configuration.
func (b *Bridge) Config() *config.Config { return b.cfg }

// State returns the lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Addr returns the northbound listen address, or nil before Start.
func (b *Bridge) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.north == nil {
		return nil
	}
	return b.north.Addr()
}

// Status returns a snapshot of the bridge.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{
		State:      b.state,
		Southbound: supervisor.StateIdle,
		StoreTags:  b.store.Len(),
		Nodes:      len(b.nodes),
		Advertised: b.advertised,
	}
	if b.sup != nil {
		st.Southbound = b.sup.State()
		st.SessionID = b.sup.SessionID()
		st.LastError = b.sup.LastError()
		st.Supervisor = b.sup.Stats()
	}
	if b.sched != nil {
		st.Sync = b.sched.Stats()
	}
	if b.north != nil {
		st.Subscribers = b.north.Subscribers()
		if addr := b.north.Addr(); addr != nil {
			st.Addr = addr.String()
		}
	}
	return st
}
