package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridlink/tagbridge/pkg/log"
	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/store"
)

// Scheduler errors.
var (
	ErrNodePanic   = errors.New("node update panicked")
	ErrInvalidMode = errors.New("invalid sync mode")
)

// Defaults.
const (
	DefaultPeriod       = 500 * time.Millisecond
	DefaultInitialDelay = time.Second
)

// Mode selects when nodes are written.
type Mode uint8

const (
	// ModeAlways writes and notifies every node with a store entry on
	// every tick.
	ModeAlways Mode = iota

	// ModeOnChange writes and notifies only when value, timestamp or
	// quality differ from the node's last write.
	ModeOnChange
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAlways:
		return "always"
	case ModeOnChange:
		return "on-change"
	default:
		return "unknown"
	}
}

// ParseMode parses "always" or "on-change".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return ModeAlways, nil
	case "on-change", "onchange":
		return ModeOnChange, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Notifier receives a call after each node write.
type Notifier interface {
	NodeChanged(node *model.Node)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(node *model.Node)

// NodeChanged calls f(node).
func (f NotifierFunc) NodeChanged(node *model.Node) { f(node) }

// Observer is notified of tick outcomes, typically for metrics.
// Implementations must not block.
type Observer interface {
	TickCompleted(result TickResult)
	TickSkipped()
}

// Config configures a Scheduler.
type Config struct {
	// Period between ticks.
	Period time.Duration

	// InitialDelay before the first tick. Zero starts immediately.
	InitialDelay time.Duration

	// Mode selects always or on-change writes.
	Mode Mode

	// Logger for operational logs. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives a summary event per tick. Nil disables capture.
	EventLogger log.Logger

	// Observer receives tick outcomes. Optional.
	Observer Observer

	// Now returns the server timestamp for node writes. Defaults to time.Now.
	Now func() time.Time
}

// NodeError is a failed node write.
type NodeError struct {
	NodeID model.NodeID
	TagID  string
	Err    error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e NodeError) Unwrap() error { return e.Err }

// TickResult summarizes one tick.
type TickResult struct {
	// Tick is the sequence number, starting at 1.
	Tick uint64

	// Nodes visited.
	Nodes int

	// Written nodes, each followed by a notification.
	Written int

	// Absent nodes whose tag has no store entry.
	Absent int

	// Unchanged nodes skipped in on-change mode.
	Unchanged int

	// Failed node writes.
	Failed int

	// Errors holds one entry per failed node.
	Errors []NodeError

	// Duration of the tick.
	Duration time.Duration
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Ticks   uint64
	Skipped uint64
	Writes  uint64
	Failed  uint64
	Last    TickResult
}

// Scheduler copies store values into nodes.
type Scheduler struct {
	store    store.Reader
	nodes    []*model.Node
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
	events   log.Logger

	// tickMu serializes ticks; the timer path uses TryLock.
	tickMu sync.Mutex

	ticks   atomic.Uint64
	skipped atomic.Uint64
	writes  atomic.Uint64
	failed  atomic.Uint64

	lastMu sync.Mutex
	last   TickResult
}

// New creates a scheduler over nodes. The nodes must come from a sealed
// address space.
func New(st store.Reader, nodes []*model.Node, notifier Notifier, cfg Config) *Scheduler {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if notifier == nil {
		notifier = NotifierFunc(func(*model.Node) {})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	nodesCopy := make([]*model.Node, len(nodes))
	copy(nodesCopy, nodes)

	return &Scheduler{
		store:    st,
		nodes:    nodesCopy,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "sync"),
		events:   log.OrNoop(cfg.EventLogger),
	}
}

// Period returns the configured period.
func (s *Scheduler) Period() time.Duration { return s.cfg.Period }

// Mode returns the configured mode.
func (s *Scheduler) Mode() Mode { return s.cfg.Mode }

// Tick runs one sync cycle, waiting for a running cycle to finish first.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	return s.tick(ctx)
}

// TryTick runs one sync cycle unless one is already running, in which case
// it returns false without waiting.
func (s *Scheduler) TryTick(ctx context.Context) (TickResult, bool) {
	if !s.tickMu.TryLock() {
		s.skipped.Add(1)
		if s.cfg.Observer != nil {
			s.cfg.Observer.TickSkipped()
		}
		s.events.Log(log.Event{
			Timestamp: time.Now(),
			Component: log.ComponentSync,
			Category:  log.CategorySync,
			Sync:      &log.SyncEvent{Tick: s.ticks.Load(), Skipped: true},
		})
		s.logger.Debug("sync tick skipped, previous tick still running")
		return TickResult{}, false
	}
	defer s.tickMu.Unlock()
	return s.tick(ctx), true
}

// Run ticks every period after the initial delay until ctx is done.
// It returns after the last in-flight tick has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	fire := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.TryTick(ctx)
		}()
	}

	if s.cfg.InitialDelay > 0 {
		delay := time.NewTimer(s.cfg.InitialDelay)
		select {
		case <-ctx.Done():
			delay.Stop()
			return ctx.Err()
		case <-delay.C:
		}
	}
	fire()

	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fire()
		}
	}
}

// Stats returns a snapshot of the counters and the last tick result.
func (s *Scheduler) Stats() Stats {
	s.lastMu.Lock()
	last := s.last
	s.lastMu.Unlock()
	return Stats{
		Ticks:   s.ticks.Load(),
		Skipped: s.skipped.Load(),
		Writes:  s.writes.Load(),
		Failed:  s.failed.Load(),
		Last:    last,
	}
}

// tick runs one cycle. Caller holds tickMu.
func (s *Scheduler) tick(ctx context.Context) TickResult {
	start := time.Now()
	res := TickResult{Tick: s.ticks.Add(1)}

	for _, node := range s.nodes {
		if ctx.Err() != nil {
			break
		}
		res.Nodes++

		written, absent, err := s.syncNode(node)
		switch {
		case err != nil:
			res.Failed++
			res.Errors = append(res.Errors, NodeError{NodeID: node.ID(), TagID: node.TagID(), Err: err})
			s.logger.Warn("node sync failed", "node", node.ID().String(), "error", err)
			s.events.Log(log.Event{
				Timestamp: time.Now(),
				Component: log.ComponentSync,
				Category:  log.CategoryError,
				TagID:     node.TagID(),
				Error: &log.ErrorEventData{
					Message: err.Error(),
					Context: node.ID().String(),
					Panic:   errors.Is(err, ErrNodePanic),
				},
			})
		case absent:
			res.Absent++
		case written:
			res.Written++
		default:
			res.Unchanged++
		}
	}
	res.Duration = time.Since(start)

	s.writes.Add(uint64(res.Written))
	s.failed.Add(uint64(res.Failed))
	s.lastMu.Lock()
	s.last = res
	s.lastMu.Unlock()

	if s.cfg.Observer != nil {
		s.cfg.Observer.TickCompleted(res)
	}
	s.events.Log(log.Event{
		Timestamp: start,
		Component: log.ComponentSync,
		Category:  log.CategorySync,
		Sync: &log.SyncEvent{
			Tick:      res.Tick,
			Nodes:     res.Nodes,
			Written:   res.Written,
			Absent:    res.Absent,
			Unchanged: res.Unchanged,
			Failed:    res.Failed,
			Duration:  res.Duration,
		},
	})
	return res
}

// syncNode copies one store entry into its node. A panic in the write or
// the notifier is returned as ErrNodePanic.
func (s *Scheduler) syncNode(node *model.Node) (written, absent bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("node sync panicked",
				"node", node.ID().String(),
				"panic", r,
				"stack", string(debug.Stack()))
			written = false
			err = fmt.Errorf("%w: %v", ErrNodePanic, r)
		}
	}()

	sample, ok := s.store.Get(node.TagID())
	if !ok {
		return false, true, nil
	}
	if s.cfg.Mode == ModeOnChange && !node.Differs(sample) {
		return false, false, nil
	}
	if err := node.Write(sample, s.cfg.Now()); err != nil {
		return false, false, err
	}
	s.notifier.NodeChanged(node)
	return true, false, nil
}
