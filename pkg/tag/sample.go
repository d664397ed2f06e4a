package tag

import "time"

// Sample is the latest known state of a tag.
type Sample struct {
	Value     Value     `cbor:"1,keyasint" json:"value"`
	Timestamp time.Time `cbor:"2,keyasint" json:"timestamp"`
	Quality   Quality   `cbor:"3,keyasint" json:"quality"`
}

// Equal reports whether two samples carry the same value, timestamp and quality.
func (s Sample) Equal(o Sample) bool {
	return s.Quality == o.Quality && s.Timestamp.Equal(o.Timestamp) && s.Value.Equal(o.Value)
}

// Update is a single value change delivered by a southbound source.
type Update struct {
	TagID string
	Sample
}

// NewUpdate builds an Update.
func NewUpdate(tagID string, v Value, ts time.Time, q Quality) Update {
	return Update{TagID: tagID, Sample: Sample{Value: v, Timestamp: ts, Quality: q}}
}
