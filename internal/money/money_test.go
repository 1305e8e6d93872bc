package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	// 1.5% of R1000.00
	assert.Equal(t, Amount(1500), PercentOf(100000, 150))
	// 10% of R1000.00
	assert.Equal(t, Amount(10000), PercentOf(100000, 1000))
	// 2% of R1000.00
	assert.Equal(t, Amount(2000), PercentOf(100000, 200))
	// Half-up rounding: 1.5% of 33 cents = 0.495 -> 0? 33*150=4950/10000=0.495 rounds to 0
	assert.Equal(t, Amount(0), PercentOf(33, 150))
	// 1.5% of 34 cents = 0.51 -> 1
	assert.Equal(t, Amount(1), PercentOf(34, 150))
	// Exact half rounds up: 50 bps of 100 = 0.5 -> 1
	assert.Equal(t, Amount(1), PercentOf(100, 50))
	assert.Equal(t, Amount(0), PercentOf(0, 1000))
}

func TestPercentOfNegativeMirrorsPositive(t *testing.T) {
	for _, amount := range []Amount{1, 33, 34, 100, 99999, 123457} {
		pos := PercentOf(amount, 150)
		neg := PercentOf(-amount, 150)
		assert.Equal(t, pos, -neg, "amount %d", amount)
	}
}

func TestFormatRand(t *testing.T) {
	assert.Equal(t, "R1000.00", FormatRand(100000))
	assert.Equal(t, "R25.00", FormatRand(2500))
	assert.Equal(t, "R0.05", FormatRand(5))
	assert.Equal(t, "-R1.50", FormatRand(-150))
}

func TestParseRand(t *testing.T) {
	cases := map[string]Amount{
		"R1000.00": 100000,
		"1000":     100000,
		"R25":      2500,
		"25.5":     2550,
		"0.05":     5,
		"-R1.50":   -150,
	}
	for in, want := range cases {
		got, err := ParseRand(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "R", "-", "-R", "R-", ".", "1.234", "abc", "1.2x"} {
		_, err := ParseRand(in)
		assert.Error(t, err, in)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, a := range []Amount{0, 1, 99, 100, 2500, 100000, 114000} {
		got, err := ParseRand(FormatRand(a))
		assert.NoError(t, err)
		assert.Equal(t, a, got)
	}
}
