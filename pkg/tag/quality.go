package tag

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Quality indicates whether a value is currently trustworthy.
type Quality uint8

const (
	// QualityBad means the value must not be trusted.
	QualityBad Quality = 0x00

	// QualityUncertain means the value may be stale or imprecise.
	QualityUncertain Quality = 0x40

	// QualityGood means the value is current and valid.
	QualityGood Quality = 0xC0
)

// qualityMask selects the quality bits of a raw DA quality word.
const qualityMask = 0xC0

// FromDAQuality maps a raw DA quality word (quality, substatus and limit
// bits) onto the three quality classes.
func FromDAQuality(raw uint16) Quality {
	switch raw & qualityMask {
	case uint16(QualityGood):
		return QualityGood
	case uint16(QualityUncertain):
		return QualityUncertain
	default:
		return QualityBad
	}
}

// IsGood returns true for good quality.
func (q Quality) IsGood() bool { return q == QualityGood }

// String returns the quality name.
func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityUncertain:
		return "uncertain"
	case QualityBad:
		return "bad"
	default:
		return fmt.Sprintf("quality(0x%02x)", uint8(q))
	}
}

// ParseQuality parses "good", "uncertain" or "bad".
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good":
		return QualityGood, nil
	case "uncertain":
		return QualityUncertain, nil
	case "bad":
		return QualityBad, nil
	default:
		return QualityBad, fmt.Errorf("unknown quality %q", s)
	}
}

// MarshalJSON encodes the quality as its name.
func (q Quality) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON accepts a quality name or a raw DA quality number.
func (q *Quality) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseQuality(name)
		if err != nil {
			return err
		}
		*q = parsed
		return nil
	}
	var raw uint16
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("quality must be a name or a number: %w", err)
	}
	*q = FromDAQuality(raw)
	return nil
}
