package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const Currency = gomoney.USD

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrOutOfRange      = errors.New("amount out of range")
)

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// ParseMinor converts a decimal string such as "10000.50" into cents.
func ParseMinor(input string) (int64, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	sign := int64(1)
	switch trimmed[0] {
	case '-':
		sign = -1
		trimmed = trimmed[1:]
	case '+':
		trimmed = trimmed[1:]
	}
	wholePart, fracPart, _ := strings.Cut(trimmed, ".")
	if wholePart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if wholePart == "" {
		wholePart = "0"
	}
	if !isDigits(wholePart) || (fracPart != "" && !isDigits(fracPart)) {
		return 0, ErrInvalidAmount
	}
	if len(fracPart) > 2 {
		return 0, ErrTooManyDecimals
	}
	whole, err := strconv.ParseInt(wholePart, 10, 64)
	if err != nil || whole > (math.MaxInt64-99)/100 {
		return 0, ErrOutOfRange
	}
	frac := int64(0)
	if fracPart != "" {
		frac, _ = strconv.ParseInt((fracPart + "0")[:2], 10, 64)
	}
	return sign * (whole*100 + frac), nil
}

func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%02d", value/100, value%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}

// Display renders cents as a USD currency string, e.g. "$9,600.00".
func Display(value int64) string {
	return gomoney.New(value, Currency).Display()
}

// FromDecimal rounds a per-share price to whole cents (half to even).
func FromDecimal(price decimal.Decimal) (int64, error) {
	cents := price.Shift(2).RoundBank(0)
	if cents.GreaterThan(maxMinor) {
		return 0, ErrOutOfRange
	}
	if !cents.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

func ToDecimal(value int64) decimal.Decimal {
	return decimal.New(value, -2)
}

// MulShares returns priceMinor*shares, reporting false when the product does not fit in int64.
func MulShares(priceMinor, shares int64) (int64, bool) {
	if priceMinor < 0 || shares < 0 {
		return 0, false
	}
	if priceMinor != 0 && shares > math.MaxInt64/priceMinor {
		return 0, false
	}
	return priceMinor * shares, true
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
