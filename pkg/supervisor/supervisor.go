package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gridlink/tagbridge/pkg/log"
	"github.com/gridlink/tagbridge/pkg/southbound"
	"github.com/gridlink/tagbridge/pkg/tag"
)

// Supervisor errors.
var (
	ErrAdapterPanic   = errors.New("southbound adapter panicked")
	ErrAlreadyStarted = errors.New("supervisor already started")
	ErrStopTimeout    = errors.New("southbound did not stop in time")
	ErrStopped        = errors.New("supervisor stopped")
)

// DefaultConnectTimeout bounds a single Connect call.
const DefaultConnectTimeout = 30 * time.Second

// State is the supervisor state.
type State uint8

const (
	// StateIdle is the state before Start.
	StateIdle State = iota

	// StateConnecting indicates a Connect call is in progress.
	StateConnecting

	// StateSubscribing indicates a Subscribe call is in progress.
	StateSubscribing

	// StateRunning indicates an established session delivering updates.
	StateRunning

	// StateBackoff indicates waiting before the next connect attempt.
	StateBackoff

	// StateStopped indicates the supervisor has been stopped.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateRunning:
		return "RUNNING"
	case StateBackoff:
		return "BACKOFF"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Sink receives the updates delivered by the adapter.
// *store.Store satisfies it.
type Sink interface {
	Apply(u tag.Update)
}

// Observer is notified of supervisor activity. Implementations must not block.
type Observer interface {
	StateChanged(state State)
	ConnectAttempt(err error)
	SubscriptionResult(tagID string, err error)
	Delivered(n int)
	Panic(op string)
}

// Config configures a Supervisor.
type Config struct {
	// Backoff configures reconnect delays.
	Backoff BackoffConfig

	// ConnectTimeout bounds each Connect call.
	ConnectTimeout time.Duration

	// Logger for operational logs. Nil disables logging.
	Logger *slog.Logger

	// EventLogger receives structured events. Nil disables capture.
	EventLogger log.Logger

	// Observer receives activity callbacks, typically metrics. Optional.
	Observer Observer
}

// Stats is a snapshot of supervisor counters.
type Stats struct {
	Sessions        uint64
	ConnectFailures uint64
	Panics          uint64
	Delivered       uint64
	Dropped         uint64
}

// Supervisor runs an adapter in isolation and feeds its updates into a sink.
type Supervisor struct {
	adapter southbound.Adapter
	tags    []string
	sink    Sink
	cfg     Config
	logger  *slog.Logger
	events  log.Logger
	backoff *Backoff

	mu            sync.RWMutex
	state         State
	sessionID     string
	lastErr       error
	onStateChange func(oldState, newState State)

	started atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	sessions        atomic.Uint64
	connectFailures atomic.Uint64
	panics          atomic.Uint64
	delivered       atomic.Uint64
	dropped         atomic.Uint64
}

// New creates a supervisor for adapter subscribing tags into sink.
func New(adapter southbound.Adapter, tags []string, sink Sink, cfg Config) *Supervisor {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tagsCopy := make([]string, len(tags))
	copy(tagsCopy, tags)

	return &Supervisor{
		adapter: adapter,
		tags:    tagsCopy,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With("component", "southbound"),
		events:  log.OrNoop(cfg.EventLogger),
		backoff: NewBackoff(cfg.Backoff),
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SessionID returns the ID of the current or last session.
func (s *Supervisor) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// LastError returns the error that ended the last failed attempt or session.
func (s *Supervisor) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// OnStateChange sets a callback for state changes. Set it before Start.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// Stats returns a snapshot of the counters.
func (s *Supervisor) Stats() Stats {
	return Stats{
		Sessions:        s.sessions.Load(),
		ConnectFailures: s.connectFailures.Load(),
		Panics:          s.panics.Load(),
		Delivered:       s.delivered.Load(),
		Dropped:         s.dropped.Load(),
	}
}

// Start launches the session loop on its own goroutine and returns
// immediately. Connect failures never surface here.
func (s *Supervisor) Start(ctx context.Context) error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.run(ctx)
	}()
	return nil
}

// Stop cancels the session loop, asks the adapter to disconnect and waits
// up to timeout for the loop to exit. An adapter call that ignores
// cancellation is abandoned after the timeout and ErrStopTimeout is
// returned; no further updates reach the sink either way.
func (s *Supervisor) Stop(timeout time.Duration) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if !s.started.Load() {
		s.setState(StateStopped, "stopped before start")
		return nil
	}

	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	// Unblock a Wait that does not observe ctx.
	if s.State() == StateRunning {
		go s.call("Disconnect", s.adapter.Disconnect)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		s.setState(StateStopped, "stopped")
		return nil
	case <-timer.C:
		s.setState(StateStopped, "stop timed out")
		s.logger.Warn("southbound did not stop in time", "timeout", timeout)
		return ErrStopTimeout
	}
}

// Done is closed when the session loop has exited.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) run(ctx context.Context) {
	for ctx.Err() == nil && !s.stopped.Load() {
		err := s.session(ctx)
		s.call("Disconnect", s.adapter.Disconnect)

		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		delay := s.backoff.Next()
		attempt := s.backoff.Attempts()
		s.logger.Warn("southbound unavailable, retrying",
			"error", err,
			"attempt", attempt,
			"retry_in", delay)
		s.transition(StateBackoff, &log.StateChangeEvent{
			Reason:  err.Error(),
			Attempt: attempt,
			RetryIn: delay,
		})

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// session runs one connect/subscribe/wait cycle and returns why it ended.
func (s *Supervisor) session(ctx context.Context) error {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()

	s.setState(StateConnecting, "")
	err := s.call("Connect", func() error {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
		return s.adapter.Connect(cctx)
	})
	if s.cfg.Observer != nil {
		s.cfg.Observer.ConnectAttempt(err)
	}
	if err != nil {
		s.connectFailures.Add(1)
		return fmt.Errorf("connect: %w", err)
	}

	s.setState(StateSubscribing, "")
	var results []southbound.ItemResult
	err = s.call("Subscribe", func() error {
		var serr error
		results, serr = s.adapter.Subscribe(ctx, s.tags, s.deliver)
		return serr
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.reportItems(id, results)

	s.backoff.Reset()
	s.sessions.Add(1)
	s.setState(StateRunning, "")
	s.logger.Info("southbound session established", "session", id, "tags", len(s.tags))

	err = s.call("Wait", func() error { return s.adapter.Wait(ctx) })
	if err == nil {
		err = southbound.ErrSessionDropped
	}
	return err
}

func (s *Supervisor) reportItems(sessionID string, results []southbound.ItemResult) {
	for _, r := range results {
		if s.cfg.Observer != nil {
			s.cfg.Observer.SubscriptionResult(r.TagID, r.Err)
		}
		ev := &log.SubscriptionEvent{OK: r.OK()}
		if r.Err != nil {
			ev.Reason = r.Err.Error()
			s.logger.Warn("tag subscription failed", "tag", r.TagID, "error", r.Err)
		}
		s.events.Log(log.Event{
			Timestamp:    time.Now(),
			SessionID:    sessionID,
			Component:    log.ComponentSouthbound,
			Category:     log.CategorySubscription,
			TagID:        r.TagID,
			Subscription: ev,
		})
	}
}

// deliver is the adapter callback. It may run on any goroutine.
func (s *Supervisor) deliver(updates []tag.Update) {
	defer func() {
		if r := recover(); r != nil {
			s.recordPanic("ChangeFunc", r)
		}
	}()

	if s.stopped.Load() {
		s.dropped.Add(uint64(len(updates)))
		return
	}

	ok := southbound.Deliverable(updates)
	if n := len(updates) - len(ok); n > 0 {
		s.dropped.Add(uint64(n))
	}
	for _, u := range ok {
		s.sink.Apply(u)
	}
	s.delivered.Add(uint64(len(ok)))
	if s.cfg.Observer != nil && len(ok) > 0 {
		s.cfg.Observer.Delivered(len(ok))
	}
}

// call runs an adapter operation, converting a panic into ErrAdapterPanic.
func (s *Supervisor) call(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.recordPanic(op, r)
			err = fmt.Errorf("%w: %s: %v", ErrAdapterPanic, op, r)
		}
	}()
	return fn()
}

func (s *Supervisor) recordPanic(op string, r any) {
	s.panics.Add(1)
	if s.cfg.Observer != nil {
		s.cfg.Observer.Panic(op)
	}
	s.logger.Error("southbound adapter panicked",
		"op", op,
		"panic", r,
		"stack", string(debug.Stack()))
	s.events.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.SessionID(),
		Component: log.ComponentSouthbound,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Message: fmt.Sprint(r),
			Context: op,
			Panic:   true,
		},
	})
}

func (s *Supervisor) setState(state State, reason string) {
	s.transition(state, &log.StateChangeEvent{Reason: reason})
}

// transition moves to state and records ev. Nothing leaves StateStopped.
func (s *Supervisor) transition(state State, ev *log.StateChangeEvent) {
	s.mu.Lock()
	old := s.state
	if old == state || old == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = state
	fn := s.onStateChange
	id := s.sessionID
	s.mu.Unlock()

	ev.OldState = old.String()
	ev.NewState = state.String()

	if s.cfg.Observer != nil {
		s.cfg.Observer.StateChanged(state)
	}
	s.events.Log(log.Event{
		Timestamp:   time.Now(),
		SessionID:   id,
		Component:   log.ComponentSouthbound,
		Category:    log.CategoryState,
		StateChange: ev,
	})
	if fn != nil {
		fn(old, state)
	}
}
