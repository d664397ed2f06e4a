package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.major, v.Major)
			assert.Equal(t, tt.minor, v.Minor)
			assert.Equal(t, tt.input, v.String())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "1", "abc", "1.0.0", "1.x", "-1.0", ".1"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("bad") })
	assert.NotPanics(t, func() { MustParse(Current) })
}

func TestCompatible(t *testing.T) {
	v1 := MustParse("1.0")
	assert.True(t, v1.Compatible(MustParse("1.7")))
	assert.False(t, v1.Compatible(MustParse("2.0")))

	assert.True(t, CompatibleWith(Current))
	assert.False(t, CompatibleWith("99.0"))
	assert.False(t, CompatibleWith(""))
}

func TestFull(t *testing.T) {
	assert.Equal(t, Current+" (dev)", Full())
}
