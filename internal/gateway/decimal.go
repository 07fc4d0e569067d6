package gateway

import (
	"math/big"
	"strings"
)

// Decimal is an exact decimal number in canonical form: no exponent, no
// leading '+', no trailing fractional zeros. Values that do not fit int64
// or carry a fractional part are kept as Decimal so that equal values
// compare equal and different values never do.
type Decimal string

// ParseDecimal parses a decimal literal such as "12.50", "-3" or "1e3".
func ParseDecimal(s string) (Decimal, bool) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return "", false
	}
	return decimalFromRat(r), true
}

func decimalFromRat(r *big.Rat) Decimal {
	if r.IsInt() {
		return Decimal(r.Num().String())
	}
	places, ok := decimalPlaces(r.Denom())
	if !ok {
		return Decimal(r.RatString())
	}
	return Decimal(r.FloatString(places))
}

// decimalPlaces returns the number of fractional digits needed to write
// 1/d exactly. ok is false when d has a prime factor other than 2 and 5.
func decimalPlaces(d *big.Int) (int, bool) {
	rest := new(big.Int).Set(d)
	twos := int(rest.TrailingZeroBits())
	rest.Rsh(rest, uint(twos))

	fives := 0
	five := big.NewInt(5)
	q, m := new(big.Int), new(big.Int)
	for {
		q.QuoRem(rest, five, m)
		if m.Sign() != 0 {
			break
		}
		rest.Set(q)
		fives++
	}
	if rest.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	return max(twos, fives), true
}

// MarshalJSON writes the value as a JSON number without rounding.
func (d Decimal) MarshalJSON() ([]byte, error) {
	if d == "" || strings.Contains(string(d), "/") {
		return []byte(`"` + string(d) + `"`), nil
	}
	return []byte(d), nil
}
