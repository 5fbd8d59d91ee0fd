package model

import (
	"bytes"
	"math/big"
	"strings"
)

var maxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Amount is an unsigned 128-bit quantity of the native token's smallest
// unit. The zero value is zero. Amounts are immutable; arithmetic returns new
// values and fails instead of wrapping.
type Amount struct {
	v *big.Int
}

// NewAmount returns n as an Amount.
func NewAmount(n uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(n)}
}

// ParseAmount parses a base-10 amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, invalidf("amount is required")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, invalidf("amount %q is not a base-10 integer", s)
	}
	return amountFromBig(v)
}

func amountFromBig(v *big.Int) (Amount, error) {
	if v.Sign() < 0 {
		return Amount{}, invalidf("amount must not be negative")
	}
	if v.Cmp(maxAmount) > 0 {
		return Amount{}, invalidf("amount does not fit in 128 bits")
	}
	return Amount{v: v}, nil
}

func (a Amount) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Big returns a copy of the amount as a big.Int.
func (a Amount) Big() *big.Int {
	return new(big.Int).Set(a.int())
}

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool {
	return a.int().Sign() == 0
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.int().Cmp(b.int())
}

// Add returns a+b, or ErrInvalidArgument on 128-bit overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	return amountFromBig(new(big.Int).Add(a.int(), b.int()))
}

// Sub returns a-b, or ErrInvalidArgument if b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	return amountFromBig(new(big.Int).Sub(a.int(), b.int()))
}

func (a Amount) String() string {
	return a.int().String()
}

// MarshalText encodes the amount as a base-10 string so it survives JSON
// clients that cannot represent 128-bit numbers.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a base-10 string.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.UnmarshalText(bytes.Trim(data, `"`))
}
