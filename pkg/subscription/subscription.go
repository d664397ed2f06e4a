package subscription

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// Subscription errors.
var (
	ErrInvalidInterval      = errors.New("invalid subscription interval")
	ErrResourceExhausted    = errors.New("maximum subscriptions reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrTooManyTags          = errors.New("too many tags in subscription")
)

// Default subscription limits.
const (
	DefaultMinInterval      = 1 * time.Second
	DefaultMaxInterval      = 60 * time.Second
	DefaultMaxSubscriptions = 50
	DefaultMaxTagsPerSub    = 1000
)

// HeartbeatMode specifies what content is sent in heartbeat notifications.
type HeartbeatMode uint8

const (
	// HeartbeatEmpty sends only the subscription ID and timestamp.
	HeartbeatEmpty HeartbeatMode = iota

	// HeartbeatFull sends the last notified sample of every tag.
	HeartbeatFull
)

// String returns the heartbeat mode name.
func (m HeartbeatMode) String() string {
	switch m {
	case HeartbeatEmpty:
		return "EMPTY"
	case HeartbeatFull:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Config holds subscription manager configuration.
type Config struct {
	// MaxSubscriptions is the maximum number of subscriptions allowed.
	MaxSubscriptions int

	// MaxTagsPerSub is the maximum number of tags per subscription.
	MaxTagsPerSub int

	// HeartbeatMode specifies heartbeat content.
	HeartbeatMode HeartbeatMode

	// SuppressBounceBack enables bounce-back suppression.
	SuppressBounceBack bool

	// AutoCorrectIntervals swaps min/max if min > max.
	AutoCorrectIntervals bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default subscription configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions:   DefaultMaxSubscriptions,
		MaxTagsPerSub:      DefaultMaxTagsPerSub,
		HeartbeatMode:      HeartbeatFull,
		SuppressBounceBack: true,
	}
}

// Subscription is an active subscription.
type Subscription struct {
	mu sync.RWMutex

	// ID is the unique subscription identifier.
	ID uint32

	// TagIDs lists subscribed tags (empty = all).
	TagIDs []string

	// MinInterval is the minimum time between notifications.
	MinInterval time.Duration

	// MaxInterval is the maximum time without notification.
	MaxInterval time.Duration

	now func() time.Time

	lastNotified time.Time

	// lastValues holds the last notified samples for bounce-back detection.
	lastValues map[string]tag.Sample

	// pending accumulates changes during the coalescing window.
	pending map[string]tag.Sample

	windowStart time.Time
	hasChanges  bool
	active      bool
}

func newSubscription(id uint32, tagIDs []string, minInterval, maxInterval time.Duration, now func() time.Time) *Subscription {
	return &Subscription{
		ID:           id,
		TagIDs:       tagIDs,
		MinInterval:  minInterval,
		MaxInterval:  maxInterval,
		now:          now,
		lastNotified: now(),
		lastValues:   make(map[string]tag.Sample),
		pending:      make(map[string]tag.Sample),
		active:       true,
	}
}

// IsActive returns whether the subscription is active.
func (s *Subscription) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Deactivate marks the subscription as inactive.
func (s *Subscription) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Covers returns true if the subscription includes tagID.
func (s *Subscription) Covers(tagID string) bool {
	return len(s.TagIDs) == 0 || slices.Contains(s.TagIDs, tagID)
}

// RecordChange records a new sample for a tag.
// Returns true if this change opens a new coalescing window.
func (s *Subscription) RecordChange(tagID string, sample tag.Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.Covers(tagID) {
		return false
	}

	isNewWindow := !s.hasChanges
	if isNewWindow {
		s.windowStart = s.now()
	}
	s.pending[tagID] = sample
	s.hasChanges = true
	return isNewWindow
}

// PendingNotification returns the samples due for notification and clears
// them. It returns nil while the coalescing window is open or when every
// pending change was a bounce-back.
func (s *Subscription) PendingNotification(suppressBounceBack bool) map[string]tag.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.hasChanges {
		return nil
	}
	now := s.now()
	if now.Sub(s.windowStart) < s.MinInterval {
		return nil
	}

	notification := make(map[string]tag.Sample)
	for tagID, sample := range s.pending {
		if suppressBounceBack {
			if last, ok := s.lastValues[tagID]; ok && last.Equal(sample) {
				continue
			}
		}
		notification[tagID] = sample
		s.lastValues[tagID] = sample
	}

	s.pending = make(map[string]tag.Sample)
	s.hasChanges = false

	if len(notification) == 0 {
		return nil
	}
	s.lastNotified = now
	return notification
}

// NeedsHeartbeat returns true if maxInterval has elapsed since the last
// notification.
func (s *Subscription) NeedsHeartbeat() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active && s.now().Sub(s.lastNotified) >= s.MaxInterval
}

// recordHeartbeat resets the heartbeat timer and returns the last values.
func (s *Subscription) recordHeartbeat() map[string]tag.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotified = s.now()
	values := make(map[string]tag.Sample, len(s.lastValues))
	for k, v := range s.lastValues {
		values[k] = v
	}
	return values
}

// setPrimingValues seeds the last values from the priming notification.
func (s *Subscription) setPrimingValues(values map[string]tag.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tagID, sample := range values {
		s.lastValues[tagID] = sample
	}
	s.lastNotified = s.now()
}

// TimeUntilCoalesceExpiry returns the time until the coalescing window
// closes, or 0 if no changes are pending.
func (s *Subscription) TimeUntilCoalesceExpiry() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasChanges {
		return 0
	}
	elapsed := s.now().Sub(s.windowStart)
	if elapsed >= s.MinInterval {
		return 0
	}
	return s.MinInterval - elapsed
}

var idGenerator atomic.Uint32

func nextID() uint32 {
	return idGenerator.Add(1)
}
