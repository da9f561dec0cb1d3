package utils

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var numberRe = regexp.MustCompile(`\d+(\.\d+)?`)

// ParsePrice converts a price string such as "$1,299.00" to float64.
// ok is false when the string holds no number.
func ParsePrice(priceStr string) (float64, bool) {
	cleanPrice := strings.ReplaceAll(priceStr, ",", "")
	cleanPrice = strings.TrimSpace(cleanPrice)

	match := numberRe.FindString(cleanPrice)
	if match == "" {
		return 0, false
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(strings.TrimLeft(cleanPrice, "$€£ "), "-") {
		price = -price
	}

	return price, true
}

// EffectivePrice applies a percentage discount. A nil discount means none.
func EffectivePrice(price float64, discountPercent *float64) float64 {
	if discountPercent == nil {
		return price
	}
	return price - price*(*discountPercent)/100
}

// ClampPercent bounds p to [0,100].
func ClampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// RoundMoney rounds half away from zero to cents. Only use it for display.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatMoney renders v with two decimals.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
