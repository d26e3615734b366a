package pricing

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits stored for every currency amount.
const Scale = 2

// Round rounds a currency amount to Scale places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Zero returns a zero amount at currency scale.
func Zero() decimal.Decimal {
	return decimal.Zero.Round(Scale)
}

// LineTotal returns quantity * unit, rounded to currency scale.
func LineTotal(quantity int, unit decimal.Decimal) decimal.Decimal {
	return Round(unit.Mul(decimal.NewFromInt(int64(quantity))))
}

// ParseAmount parses a decimal string such as "12.50".
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return Round(d), nil
}
