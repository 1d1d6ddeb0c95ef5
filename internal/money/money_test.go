package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SeparatorConventions(t *testing.T) {
	tests := []struct {
		in   string
		want VND
	}{
		{"1.234.567", 1234567},
		{"1.234,56", 1234},
		{"1,234.56", 1234},
		{"79,600", 79600},
		{"79.600", 79600},
		{"12,50", 12},
		{"1.080.000,00", 1080000},
		{"  45.000 ", 45000},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "...", "12a", "-"} {
		_, ok := Parse(in)
		assert.False(t, ok, in)
	}
}

func TestParseAmount_NoiseFloor(t *testing.T) {
	_, ok := ParseAmount("999")
	assert.False(t, ok)
	_, ok = ParseAmount("10")
	assert.False(t, ok)

	v, ok := ParseAmount("1.000")
	require.True(t, ok)
	assert.Equal(t, VND(1000), v)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0", Format(0))
	assert.Equal(t, "999", Format(999))
	assert.Equal(t, "1.000", Format(1000))
	assert.Equal(t, "45.000", Format(45000))
	assert.Equal(t, "1.234.567", Format(1234567))
	assert.Equal(t, "123.456.789.012", Format(123456789012))
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []VND{1000, 1001, 99999, 100000, 1080000, 7654321, 1000000000} {
		got, ok := Parse(Format(n))
		require.True(t, ok)
		assert.Equal(t, n, got)
	}
}

func TestReformat(t *testing.T) {
	assert.Equal(t, "90.000", Reformat("90,000"))
	assert.Equal(t, "2", Reformat("2"))
	assert.Equal(t, "n/a", Reformat("n/a"))
}

func TestRateMath(t *testing.T) {
	assert.Equal(t, VND(80000), ApplyRate(1000000, 8))
	assert.Equal(t, VND(4545), ApplyRate(45450, 10))

	rate, ok := InferRate(100000, 1000000)
	require.True(t, ok)
	assert.Equal(t, 10, rate)

	_, ok = InferRate(100, 0)
	assert.False(t, ok)

	assert.Equal(t, VND(1000000), RemoveRate(1080000, 8))

	r, ok := Ratio(80000, 1000000)
	require.True(t, ok)
	assert.Equal(t, "0.08", r.String())

	assert.True(t, Within(1000, 1050, 50))
	assert.False(t, Within(1000, 1051, 50))
}
