package northbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/subscription"
	"github.com/gridlink/tagbridge/pkg/wire"
)

// Server errors.
var (
	ErrAlreadyStarted = errors.New("server already started")
	ErrStopped        = errors.New("server stopped")
)

// Defaults.
const (
	DefaultListen         = ":4840"
	DefaultMaxInterval    = 60 * time.Second
	DefaultNotifyInterval = 100 * time.Millisecond
	DefaultWriteTimeout   = 10 * time.Second
	DefaultPingInterval   = 30 * time.Second
	DefaultSendBuffer     = 64
)

// Notifier is told about every node write. The sync scheduler calls it
// once per written node per tick.
type Notifier interface {
	NodeChanged(node *model.Node)
}

// Observer receives northbound events. Implementations must be safe for
// concurrent use.
type Observer interface {
	FrameSent(t wire.FrameType)
	ClientConnected()
	ClientDisconnected()
}

type noopObserver struct{}

func (noopObserver) FrameSent(wire.FrameType) {}
func (noopObserver) ClientConnected()         {}
func (noopObserver) ClientDisconnected()      {}

// Config configures a Server.
type Config struct {
	// Listen is the TCP address to serve on.
	Listen string

	// MinInterval and MaxInterval are used when a subscriber omits them.
	MinInterval time.Duration
	MaxInterval time.Duration

	// Subscription configures the subscription manager. A zero
	// MaxSubscriptions selects subscription.DefaultConfig.
	Subscription subscription.Config

	// NotifyInterval is how often pending notifications are flushed.
	NotifyInterval time.Duration

	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration

	// PingInterval is the websocket keepalive period. A client that does
	// not answer within two intervals is dropped.
	PingInterval time.Duration

	// SendBuffer is the per-client frame queue. A client whose queue is
	// full is disconnected.
	SendBuffer int

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// SouthboundState reports the southbound state for /healthz.
	SouthboundState func() string

	// Version is reported by /healthz.
	Version string

	// Observer receives northbound events.
	Observer Observer

	// Logger is used for operational logging. Nil disables logging.
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultMaxInterval
	}
	if c.NotifyInterval <= 0 {
		c.NotifyInterval = DefaultNotifyInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
	if c.Observer == nil {
		c.Observer = noopObserver{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

// Server serves the address space over HTTP and websockets.
type Server struct {
	config   Config
	space    *model.AddressSpace
	subs     *subscription.Manager
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	httpSrv *http.Server
	addr    net.Addr
	cancel  context.CancelFunc
	clients map[uint32]*client
	pending map[uint32][]subscription.Notification
	wg      sync.WaitGroup
}

// New creates a server for a sealed address space.
func New(space *model.AddressSpace, cfg Config) *Server {
	cfg.applyDefaults()

	subCfg := cfg.Subscription
	if subCfg.MaxSubscriptions == 0 {
		subCfg = subscription.DefaultConfig()
		subCfg.Now = cfg.Subscription.Now
	}
	if subCfg.MaxTagsPerSub < space.NodeCount() {
		subCfg.MaxTagsPerSub = space.NodeCount()
	}

	s := &Server{
		config: cfg,
		space:  space,
		subs:   subscription.NewManagerWithConfig(subCfg),
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  cfg.Logger.With("component", "northbound"),
		clients: make(map[uint32]*client),
		pending: make(map[uint32][]subscription.Notification),
	}
	s.subs.OnNotification(s.dispatch)
	s.registerRoutes()
	return s
}

// AddressSpace returns the served address space.
func (s *Server) AddressSpace() *model.AddressSpace {
	return s.space
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Subscribers returns the number of connected websocket clients.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// NodeChanged implements Notifier.
func (s *Server) NodeChanged(node *model.Node) {
	s.subs.NotifyChange(node.TagID(), node.Sample())
}

// Start listens and begins serving.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.running {
		return ErrAlreadyStarted
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Listen, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.addr = ln.Addr()
	s.httpSrv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	s.wg.Add(2)
	go s.serve(ln)
	go s.notifyLoop(loopCtx)

	s.logger.Info("northbound server listening", "addr", s.addr.String())
	return nil
}

// Stop shuts the HTTP server down, closes every websocket and waits for
// the client goroutines, bounded by ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.stopped = true
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.stopped = true
	srv := s.httpSrv
	cancel := s.cancel
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	cancel()
	err := srv.Shutdown(ctx)

	// Hijacked connections are not tracked by Shutdown.
	for _, c := range clients {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = errors.Join(err, ctx.Err())
	}

	s.subs.ClearAll()
	s.logger.Info("northbound server stopped")
	return err
}

func (s *Server) serve(ln net.Listener) {
	defer s.wg.Done()
	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("northbound server failed", "error", err)
	}
}

func (s *Server) notifyLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.NotifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.subs.ProcessNotifications()
		}
	}
}

// dispatch routes a notification to its client. Notifications for a
// subscription whose client is not registered yet are held until it is.
// Notifications for a subscription that no longer exists are dropped.
func (s *Server) dispatch(n subscription.Notification) {
	s.mu.Lock()
	c, ok := s.clients[n.SubscriptionID]
	if !ok {
		if _, err := s.subs.Get(n.SubscriptionID); err == nil {
			s.pending[n.SubscriptionID] = append(s.pending[n.SubscriptionID], n)
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.send(c, s.frame(n))
}

func (s *Server) send(c *client, f *wire.Frame) {
	if !c.enqueue(f) && !c.closed() {
		s.logger.Warn("dropping slow subscriber", "client", c.clientID, "subscription", c.subID)
		c.close()
	}
}

// frame converts a notification into a wire frame.
func (s *Server) frame(n subscription.Notification) *wire.Frame {
	f := &wire.Frame{
		Type:           wire.FrameChange,
		SubscriptionID: n.SubscriptionID,
		Timestamp:      n.Timestamp,
		Values:         make([]wire.NodeValue, 0, len(n.Samples)),
	}
	switch {
	case n.IsPriming:
		f.Type = wire.FramePriming
	case n.IsHeartbeat:
		f.Type = wire.FrameHeartbeat
	}

	for tagID, sample := range n.Samples {
		node, err := s.space.Node(tagID)
		if err != nil {
			continue
		}
		f.Values = append(f.Values, wire.NodeValue{
			NodeID:          node.ID().String(),
			TagID:           tagID,
			Value:           sample.Value,
			Quality:         sample.Quality,
			SourceTimestamp: sample.Timestamp,
		})
	}
	f.SortValues()
	return f
}

// register attaches a connected client to its subscription and flushes
// any notification that arrived before it was registered. A backlog that
// does not fit the send buffer fails the registration.
func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}

	frames := make([]*wire.Frame, 0, len(s.pending[c.subID])+1)
	frames = append(frames, &wire.Frame{
		Type:           wire.FrameSubscribed,
		SubscriptionID: c.subID,
		ClientID:       c.clientID,
		Timestamp:      time.Now(),
	})
	for _, n := range s.pending[c.subID] {
		frames = append(frames, s.frame(n))
	}
	delete(s.pending, c.subID)

	for _, f := range frames {
		if !c.enqueue(f) {
			s.logger.Warn("subscriber backlog exceeds send buffer",
				"client", c.clientID, "subscription", c.subID, "frames", len(frames))
			return false
		}
	}
	s.clients[c.subID] = c

	s.wg.Add(2)
	go s.writePump(c)
	go s.readPump(c)
	return true
}

// unregister removes a client and its subscription.
func (s *Server) unregister(c *client) {
	// Unsubscribe first so a concurrent dispatch cannot refill pending.
	if err := s.subs.Unsubscribe(c.subID); err != nil && !errors.Is(err, subscription.ErrSubscriptionNotFound) {
		s.logger.Warn("unsubscribe failed", "subscription", c.subID, "error", err)
	}

	s.mu.Lock()
	_, known := s.clients[c.subID]
	delete(s.clients, c.subID)
	delete(s.pending, c.subID)
	s.mu.Unlock()

	if known {
		s.config.Observer.ClientDisconnected()
		s.logger.Info("subscriber disconnected", "client", c.clientID, "subscription", c.subID)
	}
}

// discard drops a subscription whose websocket never came up.
func (s *Server) discard(subID uint32) {
	_ = s.subs.Unsubscribe(subID)
	s.mu.Lock()
	delete(s.pending, subID)
	s.mu.Unlock()
}

var _ Notifier = (*Server)(nil)
