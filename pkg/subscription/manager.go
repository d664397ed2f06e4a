package subscription

import (
	"sync"
	"time"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// Notification is a batch of samples for one subscription.
type Notification struct {
	// SubscriptionID identifies the subscription.
	SubscriptionID uint32

	// Samples maps tag IDs to their latest samples.
	Samples map[string]tag.Sample

	// IsPriming indicates the initial notification.
	IsPriming bool

	// IsHeartbeat indicates a heartbeat notification.
	IsHeartbeat bool

	// Timestamp is when the notification was generated.
	Timestamp time.Time
}

// Manager manages subscriptions.
type Manager struct {
	mu sync.RWMutex

	config Config

	subscriptions map[uint32]*Subscription

	// tagIndex maps a tag to the subscriptions naming it explicitly.
	tagIndex map[string][]*Subscription

	// wildcard holds subscriptions covering all tags.
	wildcard []*Subscription

	onNotification func(Notification)
}

// NewManager creates a manager with the default configuration.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a manager with a custom configuration.
func NewManagerWithConfig(config Config) *Manager {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	if config.MaxTagsPerSub <= 0 {
		config.MaxTagsPerSub = DefaultMaxTagsPerSub
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Manager{
		config:        config,
		subscriptions: make(map[uint32]*Subscription),
		tagIndex:      make(map[string][]*Subscription),
	}
}

// Subscribe creates a subscription and sends a priming notification with
// the current samples of the subscribed tags.
func (m *Manager) Subscribe(
	tagIDs []string,
	minInterval, maxInterval time.Duration,
	current map[string]tag.Sample,
) (uint32, error) {
	if maxInterval <= 0 || minInterval < 0 {
		return 0, ErrInvalidInterval
	}
	if minInterval > maxInterval {
		if !m.config.AutoCorrectIntervals {
			return 0, ErrInvalidInterval
		}
		minInterval, maxInterval = maxInterval, minInterval
	}
	if len(tagIDs) > m.config.MaxTagsPerSub {
		return 0, ErrTooManyTags
	}

	m.mu.Lock()
	if len(m.subscriptions) >= m.config.MaxSubscriptions {
		m.mu.Unlock()
		return 0, ErrResourceExhausted
	}

	id := nextID()
	sub := newSubscription(id, append([]string(nil), tagIDs...), minInterval, maxInterval, m.config.Now)

	priming := filterTags(current, tagIDs)
	sub.setPrimingValues(priming)

	m.subscriptions[id] = sub
	if len(tagIDs) == 0 {
		m.wildcard = append(m.wildcard, sub)
	} else {
		for _, tagID := range tagIDs {
			m.tagIndex[tagID] = append(m.tagIndex[tagID], sub)
		}
	}
	onNotify := m.onNotification
	m.mu.Unlock()

	if onNotify != nil && len(priming) > 0 {
		onNotify(Notification{
			SubscriptionID: id,
			Samples:        priming,
			IsPriming:      true,
			Timestamp:      m.config.Now(),
		})
	}
	return id, nil
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, exists := m.subscriptions[subscriptionID]
	if !exists {
		return ErrSubscriptionNotFound
	}
	sub.Deactivate()
	delete(m.subscriptions, subscriptionID)

	if len(sub.TagIDs) == 0 {
		m.wildcard = removeSub(m.wildcard, subscriptionID)
		return nil
	}
	for _, tagID := range sub.TagIDs {
		m.tagIndex[tagID] = removeSub(m.tagIndex[tagID], subscriptionID)
		if len(m.tagIndex[tagID]) == 0 {
			delete(m.tagIndex, tagID)
		}
	}
	return nil
}

// NotifyChange records a new sample for dispatch to the subscriptions
// covering tagID.
func (m *Manager) NotifyChange(tagID string, sample tag.Sample) {
	m.mu.RLock()
	subs := make([]*Subscription, 0, len(m.tagIndex[tagID])+len(m.wildcard))
	subs = append(subs, m.tagIndex[tagID]...)
	subs = append(subs, m.wildcard...)
	m.mu.RUnlock()

	for _, sub := range subs {
		sub.RecordChange(tagID, sample)
	}
}

// ProcessNotifications sends pending notifications and heartbeats.
// Call it periodically, at least as often as the smallest minInterval.
func (m *Manager) ProcessNotifications() {
	m.mu.RLock()
	subs := make([]*Subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	onNotify := m.onNotification
	config := m.config
	m.mu.RUnlock()

	if onNotify == nil {
		return
	}

	for _, sub := range subs {
		if samples := sub.PendingNotification(config.SuppressBounceBack); samples != nil {
			onNotify(Notification{
				SubscriptionID: sub.ID,
				Samples:        samples,
				Timestamp:      config.Now(),
			})
		}

		if sub.NeedsHeartbeat() {
			values := sub.recordHeartbeat()
			n := Notification{
				SubscriptionID: sub.ID,
				IsHeartbeat:    true,
				Timestamp:      config.Now(),
			}
			if config.HeartbeatMode == HeartbeatFull {
				n.Samples = values
			}
			onNotify(n)
		}
	}
}

// ClearAll removes all subscriptions.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subscriptions {
		sub.Deactivate()
	}
	m.subscriptions = make(map[uint32]*Subscription)
	m.tagIndex = make(map[string][]*Subscription)
	m.wildcard = nil
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Get returns a subscription by ID.
func (m *Manager) Get(subscriptionID uint32) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.subscriptions[subscriptionID]
	if !exists {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// OnNotification sets the notification callback.
func (m *Manager) OnNotification(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotification = fn
}

func removeSub(subs []*Subscription, id uint32) []*Subscription {
	for i, s := range subs {
		if s.ID == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// filterTags returns the samples of the subscribed tags.
// An empty tagIDs selects every sample.
func filterTags(values map[string]tag.Sample, tagIDs []string) map[string]tag.Sample {
	if len(tagIDs) == 0 {
		result := make(map[string]tag.Sample, len(values))
		for k, v := range values {
			result[k] = v
		}
		return result
	}
	result := make(map[string]tag.Sample)
	for _, id := range tagIDs {
		if v, ok := values[id]; ok {
			result[id] = v
		}
	}
	return result
}
