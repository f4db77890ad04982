// Package fixedpoint implements the unsigned fixed-point arithmetic used by
// the share ledger. Amounts, share counts, the reward multiplier, and prices
// are all integers scaled by 10^18 (Base).
//
// The numeric contract: products like shares * multiplier must be computed
// at full width before narrowing by division, and every conversion that
// could create value rounds down. math/big gives arbitrary-width
// intermediates, so MulDiv is exact up to the final floor.
package fixedpoint

import (
	"fmt"
	"math/big"
	"strings"

	dErrors "xftledger/pkg/domain-errors"
)

const decimals = 18

var base = new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil)

// Value is an immutable non-negative fixed-point number at 10^18 scale.
// The zero Value is valid and equals zero. Every operation returns a fresh
// Value; the internal big.Int is never shared with callers.
type Value struct {
	i *big.Int
}

// Base returns the scaling factor 10^18 as a Value representing 1.0.
func Base() Value {
	return Value{i: new(big.Int).Set(base)}
}

// Zero returns the zero value.
func Zero() Value {
	return Value{}
}

// Decimals returns the fixed decimal scale.
func Decimals() uint8 {
	return decimals
}

// FromBigInt builds a Value from a raw scaled integer. Negative inputs are
// rejected.
func FromBigInt(i *big.Int) (Value, error) {
	if i == nil {
		return Value{}, nil
	}
	if i.Sign() < 0 {
		return Value{}, dErrors.New(dErrors.CodeInvalidInput, "fixed-point value cannot be negative")
	}
	return Value{i: new(big.Int).Set(i)}, nil
}

// FromUnits builds a Value from a whole number of units (n * 10^18).
func FromUnits(n int64) Value {
	if n <= 0 {
		return Value{}
	}
	return Value{i: new(big.Int).Mul(big.NewInt(n), base)}
}

// Parse reads a decimal string such as "1000", "1.5", or "0.000000000000000001".
// More than 18 fractional digits is rejected rather than silently truncated.
func Parse(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, dErrors.New(dErrors.CodeInvalidInput, "fixed-point value cannot be empty")
	}
	if strings.HasPrefix(s, "-") {
		return Value{}, dErrors.New(dErrors.CodeInvalidInput, "fixed-point value cannot be negative")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return Value{}, dErrors.Newf(dErrors.CodeInvalidInput, "at most %d fractional digits allowed, got %d", decimals, len(frac))
	}
	frac = frac + strings.Repeat("0", decimals-len(frac))
	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return Value{}, dErrors.Newf(dErrors.CodeInvalidInput, "malformed fixed-point value: %q", s)
	}
	f, ok := new(big.Int).SetString(frac, 10)
	if !ok {
		return Value{}, dErrors.Newf(dErrors.CodeInvalidInput, "malformed fixed-point value: %q", s)
	}
	w.Mul(w, base)
	w.Add(w, f)
	return Value{i: w}, nil
}

// MustParse is Parse for test fixtures and constants; it panics on error.
func MustParse(s string) Value {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) big() *big.Int {
	if v.i == nil {
		return new(big.Int)
	}
	return v.i
}

// BigInt returns a copy of the raw scaled integer.
func (v Value) BigInt() *big.Int {
	return new(big.Int).Set(v.big())
}

// IsZero reports whether the value is zero.
func (v Value) IsZero() bool {
	return v.i == nil || v.i.Sign() == 0
}

// Cmp compares v and o: -1 if v < o, 0 if equal, +1 if v > o.
func (v Value) Cmp(o Value) int {
	return v.big().Cmp(o.big())
}

// Equal reports whether v == o.
func (v Value) Equal(o Value) bool {
	return v.Cmp(o) == 0
}

// Add returns v + o.
func (v Value) Add(o Value) Value {
	return Value{i: new(big.Int).Add(v.big(), o.big())}
}

// Sub returns v - o, or an error when the result would be negative. Share
// balances and totals never go below zero, so a negative difference is
// always a caller bug or an insufficient-balance condition.
func (v Value) Sub(o Value) (Value, error) {
	r := new(big.Int).Sub(v.big(), o.big())
	if r.Sign() < 0 {
		return Value{}, dErrors.New(dErrors.CodeInsufficientBalance, "fixed-point subtraction underflow")
	}
	return Value{i: r}, nil
}

// MulDiv returns floor(v * mul / div). The product is taken at full width
// before the division, so no intermediate overflow is possible. div must be
// non-zero.
func (v Value) MulDiv(mul, div Value) (Value, error) {
	if div.IsZero() {
		return Value{}, dErrors.New(dErrors.CodeInvalidInput, "fixed-point division by zero")
	}
	p := new(big.Int).Mul(v.big(), mul.big())
	p.Quo(p, div.big())
	return Value{i: p}, nil
}

// String renders the value as a decimal with trailing fractional zeros
// trimmed: "1000", "1.5", "0.000000000000000001".
func (v Value) String() string {
	q, r := new(big.Int).QuoRem(v.big(), base, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := strings.TrimRight(fmt.Sprintf("%018s", r.String()), "0")
	return q.String() + "." + frac
}

// MarshalText implements encoding.TextMarshaler for JSON payloads.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Value) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
