package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,299.00", 1299, true},
		{"  42 ", 42, true},
		{"4.5 out of 5 stars", 4.5, true},
		{"-3.5", -3.5, true},
		{"", 0, false},
		{"free", 0, false},
	}
	for _, c := range cases {
		got, ok := ParsePrice(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.InDelta(t, c.want, got, 1e-9, c.in)
	}
}

func TestEffectivePriceNeverExceedsPrice(t *testing.T) {
	for _, price := range []float64{0, 0.01, 9.99, 100, 1234.56} {
		for d := 0.0; d <= 100; d += 2.5 {
			discount := d
			got := EffectivePrice(price, &discount)
			assert.InDelta(t, price*(1-discount/100), got, 1e-9)
			assert.LessOrEqual(t, got, price)
		}
	}
	assert.Equal(t, 50.0, EffectivePrice(50, nil))
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, ClampPercent(-4))
	assert.Equal(t, 100.0, ClampPercent(140))
	assert.Equal(t, 12.5, ClampPercent(12.5))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 0.1, RoundMoney(0.1+0.2-0.2))
	assert.Equal(t, 19.99, RoundMoney(19.985))
	assert.Equal(t, "190.00", FormatMoney(90+100))
}
