package natssource

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gridlink/tagbridge/pkg/tag"
	"github.com/gridlink/tagbridge/pkg/wire"
)

// ErrBadPayload is returned for payloads that cannot be decoded.
var ErrBadPayload = errors.New("bad payload")

// Subject returns the subject a tag is published on.
func Subject(prefix, tagID string) string {
	if prefix == "" {
		return tagID
	}
	return prefix + "." + tagID
}

type jsonPayload struct {
	Value     any          `json:"value"`
	Timestamp *time.Time   `json:"timestamp,omitempty"`
	Quality   *tag.Quality `json:"quality,omitempty"`
}

type cborPayload struct {
	Value     tag.Value    `cbor:"1,keyasint"`
	Timestamp *time.Time   `cbor:"2,keyasint,omitempty"`
	Quality   *tag.Quality `cbor:"3,keyasint,omitempty"`
}

// Decode decodes a payload. Missing timestamp and quality default to now
// and good.
func Decode(enc wire.Encoding, data []byte, now time.Time) (tag.Sample, error) {
	var (
		v  tag.Value
		ts *time.Time
		q  *tag.Quality
	)

	switch enc {
	case wire.EncodingCBOR:
		var p cborPayload
		if err := wire.Unmarshal(data, &p); err != nil {
			return tag.Sample{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		v, ts, q = p.Value, p.Timestamp, p.Quality
	default:
		var p jsonPayload
		if err := wire.UnmarshalAs(wire.EncodingJSON, data, &p); err != nil {
			return tag.Sample{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		val, err := tag.FromAny(p.Value)
		if err != nil {
			return tag.Sample{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		v, ts, q = val, p.Timestamp, p.Quality
	}

	if !v.IsValid() {
		return tag.Sample{}, fmt.Errorf("%w: missing value", ErrBadPayload)
	}

	s := tag.Sample{Value: v, Timestamp: now, Quality: tag.QualityGood}
	if ts != nil {
		s.Timestamp = *ts
	}
	if q != nil {
		s.Quality = *q
	}
	return s, nil
}

// Encode encodes a sample in the given encoding.
func Encode(enc wire.Encoding, s tag.Sample) ([]byte, error) {
	ts, q := s.Timestamp, s.Quality
	switch enc {
	case wire.EncodingCBOR:
		return wire.Marshal(cborPayload{Value: s.Value, Timestamp: &ts, Quality: &q})
	default:
		return json.Marshal(jsonPayload{Value: s.Value, Timestamp: &ts, Quality: &q})
	}
}
