package tag

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		want any
	}{
		{"int", 7, KindInt, int64(7)},
		{"int32", int32(-5), KindInt, int64(-5)},
		{"int64", int64(1 << 40), KindInt, int64(1 << 40)},
		{"uint16", uint16(65535), KindInt, int64(65535)},
		{"float32", float32(1.5), KindFloat, float64(1.5)},
		{"float64", 3.14, KindFloat, 3.14},
		{"bool", true, KindBool, true},
		{"string", "run", KindString, "run"},
		{"json int", json.Number("42"), KindInt, int64(42)},
		{"json float", json.Number("4.2"), KindFloat, 4.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.want, v.Any())
		})
	}
}

func TestFromAnyErrors(t *testing.T) {
	_, err := FromAny(nil)
	assert.ErrorIs(t, err, ErrNilValue)

	_, err = FromAny(Value{})
	assert.ErrorIs(t, err, ErrNilValue)

	_, err = FromAny(uint64(math.MaxUint64))
	assert.ErrorIs(t, err, ErrValueOverflow)

	_, err = FromAny([]int{1})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Float(1)), "different kinds never compare equal")
	assert.True(t, Float(math.NaN()).Equal(Float(math.NaN())))
	assert.False(t, String("a").Equal(String("b")))
	assert.True(t, Value{}.Equal(Value{}))
}

func TestValueNumber(t *testing.T) {
	n, ok := Int(3).Number()
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	_, ok = Bool(true).Number()
	assert.False(t, ok)
}

func TestValueCBORKeepsKind(t *testing.T) {
	for _, v := range []Value{Int(12), Float(12), Bool(false), String("x")} {
		t.Run(v.Kind().String(), func(t *testing.T) {
			data, err := cbor.Marshal(v)
			require.NoError(t, err)

			var got Value
			require.NoError(t, cbor.Unmarshal(data, &got))
			assert.Equal(t, v.Kind(), got.Kind())
			assert.True(t, v.Equal(got), "got %v want %v", got, v)
		})
	}
}

func TestValueJSON(t *testing.T) {
	data, err := json.Marshal(Float(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	data, err = json.Marshal(Int(5))
	require.NoError(t, err)
	assert.Equal(t, "5", string(data))

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`42`), &v))
	assert.True(t, v.Equal(Int(42)))
	require.NoError(t, json.Unmarshal([]byte(`2.5`), &v))
	assert.True(t, v.Equal(Float(2.5)))
	require.NoError(t, json.Unmarshal([]byte(`"on"`), &v))
	assert.True(t, v.Equal(String("on")))
	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.False(t, v.IsValid())
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Double")
	require.NoError(t, err)
	assert.Equal(t, KindFloat, k)

	_, err = ParseKind("decimal")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestQuality(t *testing.T) {
	assert.Equal(t, QualityBad, Quality(0), "zero quality must be bad")
	assert.Equal(t, QualityGood, FromDAQuality(0xC0))
	assert.Equal(t, QualityGood, FromDAQuality(0xD8), "limit and substatus bits are ignored")
	assert.Equal(t, QualityUncertain, FromDAQuality(0x44))
	assert.Equal(t, QualityBad, FromDAQuality(0x0C))

	var q Quality
	require.NoError(t, json.Unmarshal([]byte(`"uncertain"`), &q))
	assert.Equal(t, QualityUncertain, q)
	require.NoError(t, json.Unmarshal([]byte(`192`), &q))
	assert.Equal(t, QualityGood, q)
	assert.Error(t, json.Unmarshal([]byte(`"stale"`), &q))
}
