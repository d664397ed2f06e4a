package bridge

import (
	"errors"
	"log/slog"

	"github.com/gridlink/tagbridge/pkg/discovery"
	"github.com/gridlink/tagbridge/pkg/log"
	"github.com/gridlink/tagbridge/pkg/metrics"
)

// Bridge errors.
var (
	ErrNotStarted     = errors.New("bridge not started")
	ErrAlreadyStarted = errors.New("bridge already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// State is the lifecycle state of a Bridge.
type State uint8

const (
	// StateIdle - created but not started.
	StateIdle State = iota

	// StateStarting - components are being started.
	StateStarting

	// StateRunning - all components are running.
	StateRunning

	// StateStopping - components are being stopped.
	StateStopping

	// StateStopped - stopped; a stopped bridge cannot be restarted.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithEventLogger adds an event sink. It is combined with the file log
// named by the configuration, if any. The caller keeps ownership.
func WithEventLogger(l log.Logger) Option {
	return func(b *Bridge) { b.extraEvents = l }
}

// WithMetrics uses m instead of a private metrics registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithAdvertiser sets the mDNS advertiser used when the configuration
// enables advertising. Defaults to a zeroconf advertiser.
func WithAdvertiser(a discovery.Advertiser) Option {
	return func(b *Bridge) { b.advertiser = a }
}
