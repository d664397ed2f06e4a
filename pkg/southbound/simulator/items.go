package simulator

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/gridlink/tagbridge/pkg/tag"
)

// Item names served by the simulator.
const (
	ItemRandomDouble = "numeric.random.double"
	ItemRandomInt32  = "numeric.random.int32"
	ItemSinInt64     = "numeric.sin.int64"
	ItemSawDouble    = "numeric.saw.double"
	ItemToggle       = "bool.toggle"
	ItemClock        = "text.clock"
)

const (
	sinPeriod = 60 * time.Second
	sawPeriod = 10 * time.Second
)

// generator produces the next value for an item. Calls are serialized by
// the simulator.
type generator func(rng *rand.Rand, now time.Time, prev tag.Value) tag.Value

var generators = map[string]generator{
	ItemRandomDouble: func(rng *rand.Rand, _ time.Time, _ tag.Value) tag.Value {
		return tag.Float(rng.Float64() * 100)
	},
	ItemRandomInt32: func(rng *rand.Rand, _ time.Time, _ tag.Value) tag.Value {
		return tag.Int(int64(rng.Int31()))
	},
	ItemSinInt64: func(_ *rand.Rand, now time.Time, _ tag.Value) tag.Value {
		phase := float64(now.UnixNano()%int64(sinPeriod)) / float64(sinPeriod)
		return tag.Int(int64(math.Round(100 * math.Sin(2*math.Pi*phase))))
	},
	ItemSawDouble: func(_ *rand.Rand, now time.Time, _ tag.Value) tag.Value {
		return tag.Float(100 * float64(now.UnixNano()%int64(sawPeriod)) / float64(sawPeriod))
	},
	ItemToggle: func(_ *rand.Rand, _ time.Time, prev tag.Value) tag.Value {
		b, _ := prev.AsBool()
		return tag.Bool(!b)
	},
	ItemClock: func(_ *rand.Rand, now time.Time, _ tag.Value) tag.Value {
		return tag.String(now.Format(time.TimeOnly))
	},
}

// Items returns the names of all items the simulator serves, sorted.
func Items() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasItem returns true if the simulator serves name.
func HasItem(name string) bool {
	_, ok := generators[name]
	return ok
}
