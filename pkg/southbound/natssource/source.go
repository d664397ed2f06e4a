package natssource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gridlink/tagbridge/pkg/southbound"
	"github.com/gridlink/tagbridge/pkg/tag"
	"github.com/gridlink/tagbridge/pkg/wire"
)

// Defaults.
const (
	DefaultURL           = nats.DefaultURL
	DefaultSubjectPrefix = "tags"
	DefaultName          = "tagbridge"
	DefaultTimeout       = 5 * time.Second
)

// Config configures the NATS source.
type Config struct {
	URL            string
	SubjectPrefix  string
	Name           string
	Encoding       wire.Encoding
	ConnectTimeout time.Duration

	// Logger for operational logs. Nil disables logging.
	Logger *slog.Logger

	// Now returns the receive time. Defaults to time.Now.
	Now func() time.Time
}

// Source is a southbound.Adapter fed by NATS subjects.
type Source struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	nc   *nats.Conn
	subs []*nats.Subscription
	done chan struct{}
	lost chan error
}

var _ southbound.Adapter = (*Source)(nil)

// New creates a NATS source.
func New(cfg Config) *Source {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Encoding == "" {
		cfg.Encoding = wire.EncodingJSON
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{cfg: cfg, logger: logger}
}

func (s *Source) options(lost chan error) []nats.Option {
	signal := func(err error) {
		if err == nil {
			err = nats.ErrConnectionClosed
		}
		select {
		case lost <- err:
		default:
		}
	}
	return []nats.Option{
		nats.Name(s.cfg.Name),
		nats.Timeout(s.cfg.ConnectTimeout),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			signal(err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			signal(nil)
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			s.logger.Warn("nats async error", "subject", subject, "error", err)
		}),
	}
}

// Connect dials the NATS server.
func (s *Source) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.nc != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	lost := make(chan error, 1)
	connectDone := make(chan struct{})
	var (
		nc  *nats.Conn
		err error
	)
	go func() {
		defer close(connectDone)
		nc, err = nats.Connect(s.cfg.URL, s.options(lost)...)
	}()

	select {
	case <-connectDone:
	case <-ctx.Done():
		go func() {
			<-connectDone
			if nc != nil {
				nc.Close()
			}
		}()
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("connect %s: %w", s.cfg.URL, err)
	}

	s.mu.Lock()
	s.nc = nc
	s.subs = nil
	s.done = make(chan struct{})
	s.lost = lost
	s.mu.Unlock()

	s.logger.Debug("nats connected", "url", nc.ConnectedUrl())
	return nil
}

// Subscribe subscribes one subject per tag.
func (s *Source) Subscribe(ctx context.Context, tagIDs []string, onChange southbound.ChangeFunc) ([]southbound.ItemResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nc == nil {
		return nil, southbound.ErrNotConnected
	}

	results := make([]southbound.ItemResult, 0, len(tagIDs))
	for _, id := range tagIDs {
		sub, err := s.nc.Subscribe(Subject(s.cfg.SubjectPrefix, id), s.handler(id, onChange))
		if err != nil {
			results = append(results, southbound.ItemResult{TagID: id, Err: err})
			continue
		}
		s.subs = append(s.subs, sub)
		results = append(results, southbound.ItemResult{TagID: id})
	}

	if err := s.nc.FlushWithContext(ctx); err != nil {
		return results, fmt.Errorf("flush subscriptions: %w", err)
	}
	return results, nil
}

func (s *Source) handler(tagID string, onChange southbound.ChangeFunc) nats.MsgHandler {
	return func(msg *nats.Msg) {
		sample, err := Decode(s.cfg.Encoding, msg.Data, s.cfg.Now())
		if err != nil {
			s.logger.Warn("dropping update", "tag", tagID, "subject", msg.Subject, "error", err)
			return
		}
		onChange([]tag.Update{{TagID: tagID, Sample: sample}})
	}
}

// Wait blocks until the connection is lost, Disconnect is called, or ctx
// is done.
func (s *Source) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.nc == nil {
		s.mu.Unlock()
		return southbound.ErrNotConnected
	}
	done, lost := s.done, s.lost
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case err := <-lost:
		return fmt.Errorf("%w: %v", southbound.ErrSessionDropped, err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect unsubscribes and closes the connection.
func (s *Source) Disconnect() error {
	s.mu.Lock()
	nc, subs, done := s.nc, s.subs, s.done
	s.nc, s.subs = nil, nil
	s.mu.Unlock()

	if nc == nil {
		return nil
	}
	close(done)

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	nc.Close()
	return errors.Join(errs...)
}
