// Package subscription manages northbound subscriptions to node values.
//
// A subscription covers a set of tags (empty means all) and delivers
// Notifications carrying the latest sample per tag. The manager handles
// coalescing, heartbeats, and bounce-back suppression.
//
// # Subscription Parameters
//
// Each subscription has:
//   - minInterval: minimum time between notifications (coalescing window)
//   - maxInterval: maximum time without notification (heartbeat)
//   - tagIDs: tags to follow (empty = all)
//
// # Coalescing Behavior
//
// When several changes occur within minInterval, only the final sample per
// tag is sent. The window starts with the first change after the previous
// notification.
//
// # Bounce-Back Suppression
//
// A tag whose pending sample equals the last notified sample is left out
// of the notification. With the sync scheduler in always mode this filters
// out ticks that re-announce an unchanged store entry.
//
// # Priming and Heartbeat
//
// A new subscription immediately receives a priming notification with the
// current samples. Heartbeats are sent at maxInterval when nothing changed.
//
// # Lifecycle
//
// Subscriptions belong to a client connection and are removed with it.
package subscription
