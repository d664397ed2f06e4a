package subscription

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/tagbridge/pkg/tag"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sink struct {
	mu    sync.Mutex
	notes []Notification
}

func (s *sink) record(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
}

func (s *sink) all() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.notes...)
}

func sample(v int64, sec int64) tag.Sample {
	return tag.Sample{Value: tag.Int(v), Timestamp: time.Unix(sec, 0), Quality: tag.QualityGood}
}

func newTestManager(clock *fakeClock) (*Manager, *sink) {
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	m := NewManagerWithConfig(cfg)
	s := &sink{}
	m.OnNotification(s.record)
	return m, s
}

func TestSubscribePriming(t *testing.T) {
	clock := newFakeClock()
	m, s := newTestManager(clock)

	current := map[string]tag.Sample{"a": sample(1, 1), "b": sample(2, 1)}
	id, err := m.Subscribe([]string{"a"}, time.Second, time.Minute, current)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count())

	notes := s.all()
	require.Len(t, notes, 1)
	assert.True(t, notes[0].IsPriming)
	assert.Equal(t, id, notes[0].SubscriptionID)
	assert.Len(t, notes[0].Samples, 1)
	assert.True(t, notes[0].Samples["a"].Equal(sample(1, 1)))
}

func TestSubscribeValidation(t *testing.T) {
	m, _ := newTestManager(newFakeClock())

	_, err := m.Subscribe(nil, time.Second, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = m.Subscribe(nil, time.Minute, time.Second, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	cfg := DefaultConfig()
	cfg.AutoCorrectIntervals = true
	cfg.MaxSubscriptions = 1
	cfg.MaxTagsPerSub = 2
	m2 := NewManagerWithConfig(cfg)

	id, err := m2.Subscribe(nil, time.Minute, time.Second, nil)
	require.NoError(t, err)
	sub, err := m2.Get(id)
	require.NoError(t, err)
	assert.Equal(t, time.Second, sub.MinInterval)
	assert.Equal(t, time.Minute, sub.MaxInterval)

	_, err = m2.Subscribe(nil, 0, time.Second, nil)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	require.NoError(t, m2.Unsubscribe(id))
	_, err = m2.Subscribe([]string{"a", "b", "c"}, 0, time.Second, nil)
	assert.ErrorIs(t, err, ErrTooManyTags)
}

func TestCoalescing(t *testing.T) {
	clock := newFakeClock()
	m, s := newTestManager(clock)

	id, err := m.Subscribe([]string{"a"}, time.Second, time.Minute, nil)
	require.NoError(t, err)

	m.NotifyChange("a", sample(1, 1))
	m.NotifyChange("a", sample(2, 2))
	m.NotifyChange("b", sample(9, 2)) // not subscribed

	m.ProcessNotifications()
	assert.Empty(t, s.all(), "window still open")

	sub, _ := m.Get(id)
	assert.Equal(t, time.Second, sub.TimeUntilCoalesceExpiry())

	clock.Advance(time.Second)
	m.ProcessNotifications()

	notes := s.all()
	require.Len(t, notes, 1)
	assert.Len(t, notes[0].Samples, 1)
	assert.True(t, notes[0].Samples["a"].Equal(sample(2, 2)))
	assert.Equal(t, time.Duration(0), sub.TimeUntilCoalesceExpiry())
}

func TestBounceBackSuppression(t *testing.T) {
	clock := newFakeClock()
	m, s := newTestManager(clock)

	_, err := m.Subscribe(nil, 0, time.Minute, map[string]tag.Sample{"a": sample(1, 1)})
	require.NoError(t, err)
	require.Len(t, s.all(), 1) // priming

	// The scheduler re-announces the same sample every tick.
	m.NotifyChange("a", sample(1, 1))
	m.ProcessNotifications()
	assert.Len(t, s.all(), 1)

	m.NotifyChange("a", sample(1, 2))
	m.ProcessNotifications()
	notes := s.all()
	require.Len(t, notes, 2)
	assert.True(t, notes[1].Samples["a"].Equal(sample(1, 2)))
}

func TestHeartbeat(t *testing.T) {
	clock := newFakeClock()
	m, s := newTestManager(clock)

	_, err := m.Subscribe([]string{"a"}, 0, 10*time.Second, map[string]tag.Sample{"a": sample(5, 1)})
	require.NoError(t, err)

	clock.Advance(9 * time.Second)
	m.ProcessNotifications()
	assert.Len(t, s.all(), 1)

	clock.Advance(time.Second)
	m.ProcessNotifications()
	notes := s.all()
	require.Len(t, notes, 2)
	assert.True(t, notes[1].IsHeartbeat)
	assert.True(t, notes[1].Samples["a"].Equal(sample(5, 1)))

	// Heartbeat resets the timer.
	clock.Advance(time.Second)
	m.ProcessNotifications()
	assert.Len(t, s.all(), 2)
}

func TestHeartbeatEmpty(t *testing.T) {
	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.Now = clock.Now
	cfg.HeartbeatMode = HeartbeatEmpty
	m := NewManagerWithConfig(cfg)
	s := &sink{}
	m.OnNotification(s.record)

	_, err := m.Subscribe(nil, 0, time.Second, map[string]tag.Sample{"a": sample(1, 1)})
	require.NoError(t, err)

	clock.Advance(time.Second)
	m.ProcessNotifications()
	notes := s.all()
	require.Len(t, notes, 2)
	assert.True(t, notes[1].IsHeartbeat)
	assert.Empty(t, notes[1].Samples)
}

func TestUnsubscribe(t *testing.T) {
	clock := newFakeClock()
	m, s := newTestManager(clock)

	id, err := m.Subscribe([]string{"a", "b"}, 0, time.Minute, nil)
	require.NoError(t, err)
	wild, err := m.Subscribe(nil, 0, time.Minute, nil)
	require.NoError(t, err)

	sub, _ := m.Get(id)
	require.NoError(t, m.Unsubscribe(id))
	assert.False(t, sub.IsActive())
	assert.ErrorIs(t, m.Unsubscribe(id), ErrSubscriptionNotFound)

	m.NotifyChange("a", sample(1, 1))
	m.ProcessNotifications()
	notes := s.all()
	require.Len(t, notes, 1)
	assert.Equal(t, wild, notes[0].SubscriptionID)

	m.ClearAll()
	assert.Equal(t, 0, m.Count())
	_, err = m.Get(wild)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestCovers(t *testing.T) {
	sub := newSubscription(1, []string{"a"}, 0, time.Second, time.Now)
	assert.True(t, sub.Covers("a"))
	assert.False(t, sub.Covers("b"))

	all := newSubscription(2, nil, 0, time.Second, time.Now)
	assert.True(t, all.Covers("anything"))
	assert.Equal(t, "FULL", HeartbeatFull.String())
}
