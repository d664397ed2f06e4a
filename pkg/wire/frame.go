package wire

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// Frame errors.
var (
	ErrUnknownEncoding  = errors.New("unknown encoding")
	ErrUnknownFrameType = errors.New("unknown frame type")
	ErrMalformedFrame   = errors.New("malformed frame")
)

// FrameType identifies a frame.
type FrameType string

// Frame types.
const (
	FrameSubscribed FrameType = "subscribed"
	FramePriming    FrameType = "priming"
	FrameChange     FrameType = "change"
	FrameHeartbeat  FrameType = "heartbeat"
	FrameError      FrameType = "error"
)

// Valid reports whether t is a known frame type.
func (t FrameType) Valid() bool {
	switch t {
	case FrameSubscribed, FramePriming, FrameChange, FrameHeartbeat, FrameError:
		return true
	}
	return false
}

// NodeValue is the state of one node inside a frame.
type NodeValue struct {
	NodeID          string      `cbor:"1,keyasint" json:"nodeId"`
	TagID           string      `cbor:"2,keyasint" json:"tagId"`
	Value           tag.Value   `cbor:"3,keyasint" json:"value"`
	Quality         tag.Quality `cbor:"4,keyasint" json:"quality"`
	SourceTimestamp time.Time   `cbor:"5,keyasint" json:"sourceTimestamp"`
}

// Frame is one message sent to a subscriber.
type Frame struct {
	Type           FrameType   `cbor:"1,keyasint" json:"type"`
	SubscriptionID uint32      `cbor:"2,keyasint,omitempty" json:"subscriptionId,omitempty"`
	ClientID       string      `cbor:"3,keyasint,omitempty" json:"clientId,omitempty"`
	Timestamp      time.Time   `cbor:"4,keyasint" json:"timestamp"`
	Values         []NodeValue `cbor:"5,keyasint,omitempty" json:"values,omitempty"`
	Error          string      `cbor:"6,keyasint,omitempty" json:"error,omitempty"`
}

// Validate checks the frame type and that error frames carry a message.
func (f *Frame) Validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFrameType, f.Type)
	}
	if f.Type == FrameError && f.Error == "" {
		return fmt.Errorf("%w: error frame without message", ErrMalformedFrame)
	}
	return nil
}

// SortValues orders the values by tag ID.
func (f *Frame) SortValues() {
	sort.Slice(f.Values, func(i, j int) bool { return f.Values[i].TagID < f.Values[j].TagID })
}

// Value looks up the value for a tag.
func (f *Frame) Value(tagID string) (NodeValue, bool) {
	for _, v := range f.Values {
		if v.TagID == tagID {
			return v, true
		}
	}
	return NodeValue{}, false
}

// EncodeFrame validates and encodes a frame.
func EncodeFrame(enc Encoding, f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return MarshalAs(enc, f)
}

// DecodeFrame decodes and validates a frame.
func DecodeFrame(enc Encoding, data []byte) (*Frame, error) {
	var f Frame
	if err := UnmarshalAs(enc, data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return &f, nil
}

// ErrorFrame builds an error frame.
func ErrorFrame(err error, now time.Time) *Frame {
	return &Frame{Type: FrameError, Timestamp: now, Error: err.Error()}
}
