package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gridlink/tagbridge/pkg/southbound"
	"github.com/gridlink/tagbridge/pkg/tag"
)

// DefaultUpdateRate is the group update rate.
const DefaultUpdateRate = time.Second

// Config configures the simulator.
type Config struct {
	// UpdateRate is the interval between value batches.
	UpdateRate time.Duration

	// FailConnects makes the first N Connect calls fail.
	FailConnects int

	// DropAfter ends each session with ErrSessionDropped after this long.
	// Zero disables.
	DropAfter time.Duration

	// Seed seeds the random generators. Zero uses the current time.
	Seed int64

	// Logger for operational logs. Nil disables logging.
	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Simulator is a southbound.Adapter producing generated values.
type Simulator struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	connects  int
	connected bool
	items     []string
	last      map[string]tag.Value
	onChange  southbound.ChangeFunc
	running   bool

	// session lifetime
	done     chan struct{}
	dropped  chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
}

var _ southbound.Adapter = (*Simulator)(nil)

// New creates a simulator.
func New(cfg Config) *Simulator {
	if cfg.UpdateRate <= 0 {
		cfg.UpdateRate = DefaultUpdateRate
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Simulator{
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
		last:   make(map[string]tag.Value),
	}
}

// Connect starts a session. The first FailConnects calls fail.
func (s *Simulator) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.connects++
	if s.connects <= s.cfg.FailConnects {
		return fmt.Errorf("%w: attempt %d", southbound.ErrConnectRefused, s.connects)
	}
	if s.connected {
		return nil
	}

	s.connected = true
	s.items = nil
	s.onChange = nil
	s.running = false
	s.done = make(chan struct{})
	s.dropped = make(chan struct{})
	s.stopOnce = &sync.Once{}

	if s.cfg.DropAfter > 0 {
		done, dropped := s.done, s.dropped
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			t := time.NewTimer(s.cfg.DropAfter)
			defer t.Stop()
			select {
			case <-done:
			case <-t.C:
				close(dropped)
			}
		}()
	}

	s.logger.Debug("simulator connected", "attempt", s.connects)
	return nil
}

// Subscribe registers items. Unknown items fail individually.
func (s *Simulator) Subscribe(ctx context.Context, tagIDs []string, onChange southbound.ChangeFunc) ([]southbound.ItemResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, southbound.ErrNotConnected
	}

	results := make([]southbound.ItemResult, 0, len(tagIDs))
	items := make([]string, 0, len(tagIDs))
	for _, id := range tagIDs {
		if !HasItem(id) {
			results = append(results, southbound.ItemResult{
				TagID: id,
				Err:   fmt.Errorf("%w: %s", southbound.ErrUnknownTag, id),
			})
			continue
		}
		results = append(results, southbound.ItemResult{TagID: id})
		items = append(items, id)
	}

	s.items = append(s.items, items...)
	s.onChange = onChange

	if !s.running && len(s.items) > 0 {
		s.running = true
		done := s.done
		s.wg.Add(1)
		go s.run(done)
	}
	return results, nil
}

// run emits a batch immediately and then once per update rate.
func (s *Simulator) run(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.UpdateRate)
	defer ticker.Stop()

	for {
		s.emit()
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (s *Simulator) emit() {
	updates, fn := s.Next()
	if fn != nil && len(updates) > 0 {
		fn(updates)
	}
}

// Next generates one batch for the subscribed items and returns it with
// the registered callback, without delivering it.
func (s *Simulator) Next() ([]tag.Update, southbound.ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, nil
	}

	now := s.cfg.Now()
	updates := make([]tag.Update, 0, len(s.items))
	for _, id := range s.items {
		v := generators[id](s.rng, now, s.last[id])
		s.last[id] = v
		updates = append(updates, tag.NewUpdate(id, v, now, tag.QualityGood))
	}
	return updates, s.onChange
}

// Wait blocks until Disconnect, a fault-injected drop, or ctx is done.
func (s *Simulator) Wait(ctx context.Context) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return southbound.ErrNotConnected
	}
	done, dropped := s.done, s.dropped
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-dropped:
		s.stop()
		return southbound.ErrSessionDropped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect ends the session.
func (s *Simulator) Disconnect() error {
	s.stop()
	s.wg.Wait()
	return nil
}

func (s *Simulator) stop() {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.connected = false
	once, done := s.stopOnce, s.done
	s.mu.Unlock()

	once.Do(func() { close(done) })
	s.logger.Debug("simulator disconnected")
}

// Connects returns the number of Connect calls so far.
func (s *Simulator) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}
