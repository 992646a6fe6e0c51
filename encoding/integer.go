package encoding

import (
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

// IntegerEncoder encodes signed integers as plaintext polynomials by
// balanced base-b digit expansion: for odd b the digits range over
// [-(b-1)/2, (b-1)/2], for even b (except b=2) over [-b/2, (b-1)/2], and for
// b=2 the conventional binary digits {0, 1} are used with the sign of the
// value applied to each digit. Each digit becomes the coefficient of the
// matching degree term; negative digits are stored as their additive
// inverses modulo the plaintext modulus. Decoding evaluates the polynomial
// at x=b over centered coefficients.
//
// In unsigned mode only non-negative values are accepted, digits are the
// plain base-b expansion in [0, b-1] and decoding evaluates over the raw
// coefficient residues.
type IntegerEncoder struct {
	params   bfv.Parameters
	ecd      *bfv.Encoder
	base     uint64
	unsigned bool
}

func newIntegerEncoder(params bfv.Parameters, ecd *bfv.Encoder, cfg config) (*IntegerEncoder, error) {
	if cfg.base < 2 {
		return nil, fmt.Errorf("integer encoding base must be at least 2, got %d", cfg.base)
	}
	if cfg.base >= params.PlaintextModulus() {
		return nil, fmt.Errorf("integer encoding base %d must be smaller than the plaintext modulus %d", cfg.base, params.PlaintextModulus())
	}
	return &IntegerEncoder{
		params:   params,
		ecd:      ecd,
		base:     cfg.base,
		unsigned: cfg.unsigned,
	}, nil
}

func (e *IntegerEncoder) Descriptor() Descriptor {
	return Descriptor{Kind: KindInteger, Base: e.base, Unsigned: e.unsigned}
}

func (e *IntegerEncoder) CanEncode(value interface{}) bool {
	n, ok := toInt64(value)
	if !ok {
		return false
	}
	if e.unsigned && n < 0 {
		return false
	}
	return len(e.digits(n)) <= e.params.N()
}

func (e *IntegerEncoder) Encode(value interface{}) (*rlwe.Plaintext, error) {
	n, ok := toInt64(value)
	if !ok {
		return nil, fmt.Errorf("%w: integer encoder cannot encode %T", ErrUnsupportedType, value)
	}
	if e.unsigned && n < 0 {
		return nil, fmt.Errorf("unsigned integer encoder cannot encode negative value %d", n)
	}

	digits := e.digits(n)
	if len(digits) > e.params.N() {
		return nil, fmt.Errorf("cannot Encode: %d does not fit in %d coefficients at base %d", n, e.params.N(), e.base)
	}

	pt := bfv.NewPlaintext(e.params, e.params.MaxLevel())
	pt.IsBatched = false
	if err := e.ecd.Encode(digits, pt); err != nil {
		return nil, fmt.Errorf("cannot Encode: %w", err)
	}
	return pt, nil
}

func (e *IntegerEncoder) Decode(pt *rlwe.Plaintext) (interface{}, error) {
	coeffs := make([]uint64, e.params.N())
	if err := e.ecd.Decode(pt, coeffs); err != nil {
		return nil, fmt.Errorf("cannot Decode: %w", err)
	}

	t := e.params.PlaintextModulus()
	base := new(big.Int).SetUint64(e.base)
	acc := new(big.Int)
	tmp := new(big.Int)

	// Horner evaluation at x=base, from the highest non-zero coefficient
	// down. Signed decoding centers each residue around zero first.
	for i := len(coeffs) - 1; i >= 0; i-- {
		c := coeffs[i]
		if acc.Sign() == 0 && c == 0 {
			continue
		}
		acc.Mul(acc, base)
		if !e.unsigned && c > t/2 {
			acc.Sub(acc, tmp.SetUint64(t-c))
		} else {
			acc.Add(acc, tmp.SetUint64(c))
		}
	}

	if e.unsigned {
		if !acc.IsUint64() {
			return nil, fmt.Errorf("cannot Decode: value overflows uint64")
		}
		return acc.Uint64(), nil
	}
	if !acc.IsInt64() {
		return nil, fmt.Errorf("cannot Decode: value overflows int64")
	}
	return acc.Int64(), nil
}

// digits returns the base-b digit expansion of n, balanced in signed mode.
// The zero value expands to no digits (the zero polynomial).
func (e *IntegerEncoder) digits(n int64) []int64 {
	if e.unsigned {
		var digits []int64
		b := int64(e.base)
		for n > 0 {
			digits = append(digits, n%b)
			n /= b
		}
		return digits
	}
	return balancedDigits(n, int64(e.base))
}

// balancedDigits expands n in base b over the balanced digit set. For b=2
// the digits are {0, 1} with the sign of n applied to each.
func balancedDigits(n, b int64) []int64 {
	var digits []int64

	if b == 2 {
		neg := n < 0
		u := n
		if neg {
			u = -u
		}
		for u > 0 {
			d := u & 1
			if neg {
				d = -d
			}
			digits = append(digits, d)
			u >>= 1
		}
		return digits
	}

	// Largest digit of the balanced set: (b-1)/2 both for odd b and, by
	// truncation, for even b (where the set is [-b/2, (b-1)/2]).
	hi := (b - 1) / 2

	for n != 0 {
		r := ((n % b) + b) % b
		if r > hi {
			r -= b
		}
		digits = append(digits, r)
		n = (n - r) / b
	}
	return digits
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
