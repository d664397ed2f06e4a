package southbound

import (
	"context"
	"errors"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// Adapter errors.
var (
	ErrUnknownTag     = errors.New("unknown tag")
	ErrNotConnected   = errors.New("not connected")
	ErrSessionDropped = errors.New("session dropped")
	ErrConnectRefused = errors.New("connect refused")
)

// ChangeFunc receives one or more value changes.
type ChangeFunc func(updates []tag.Update)

// ItemResult is the outcome of subscribing a single tag.
type ItemResult struct {
	TagID string
	Err   error
}

// OK returns true if the tag was subscribed.
func (r ItemResult) OK() bool { return r.Err == nil }

// Adapter is a southbound tag source.
type Adapter interface {
	// Connect establishes a session.
	Connect(ctx context.Context) error

	// Subscribe registers tagIDs for change delivery. It returns one
	// result per requested tag. A non-nil error means the subscription
	// as a whole failed.
	Subscribe(ctx context.Context, tagIDs []string, onChange ChangeFunc) ([]ItemResult, error)

	// Wait blocks until the session ends or ctx is done. It returns nil
	// after Disconnect and an error when the session was lost.
	Wait(ctx context.Context) error

	// Disconnect closes the session. It is safe to call more than once.
	Disconnect() error
}

// Failed returns the results that carry an error.
func Failed(results []ItemResult) []ItemResult {
	var failed []ItemResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Deliverable filters updates that cannot be stored: those with an empty
// tag ID or without a value.
func Deliverable(updates []tag.Update) []tag.Update {
	out := updates[:0:0]
	for _, u := range updates {
		if u.TagID == "" || !u.Value.IsValid() {
			continue
		}
		out = append(out, u)
	}
	return out
}
