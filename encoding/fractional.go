package encoding

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

const fracPrecision = 128

// FractionalEncoder encodes fixed-point rationals. The integer part of a
// value is expanded like the integer encoder and placed at the low-degree
// end of the polynomial; the fractional part is expanded in the same base,
// truncated to the fractional coefficient budget, and placed at the
// highest-degree end with flipped signs (X^(N-i) is -X^(-i) in the ring).
//
// Each budget is resolved to an absolute coefficient count at construction;
// their sum must not exceed the polynomial degree.
type FractionalEncoder struct {
	params     bfv.Parameters
	ecd        *bfv.Encoder
	base       uint64
	integral   int
	fractional int
}

func newFractionalEncoder(params bfv.Parameters, ecd *bfv.Encoder, cfg config) (*FractionalEncoder, error) {
	if cfg.base < 2 {
		return nil, fmt.Errorf("fractional encoding base must be at least 2, got %d", cfg.base)
	}
	if cfg.base >= params.PlaintextModulus() {
		return nil, fmt.Errorf("fractional encoding base %d must be smaller than the plaintext modulus %d", cfg.base, params.PlaintextModulus())
	}

	degree := params.N()

	integral, err := cfg.integral.resolve(degree)
	if err != nil {
		return nil, fmt.Errorf("invalid integral budget: %w", err)
	}
	fractional, err := cfg.fractional.resolve(degree)
	if err != nil {
		return nil, fmt.Errorf("invalid fractional budget: %w", err)
	}
	if integral+fractional > degree {
		return nil, fmt.Errorf("invalid budget combination: integral %d + fractional %d exceeds degree %d", integral, fractional, degree)
	}

	return &FractionalEncoder{
		params:     params,
		ecd:        ecd,
		base:       cfg.base,
		integral:   integral,
		fractional: fractional,
	}, nil
}

func (e *FractionalEncoder) Descriptor() Descriptor {
	return Descriptor{
		Kind:             KindFractional,
		Base:             e.base,
		IntegralCoeffs:   e.integral,
		FractionalCoeffs: e.fractional,
	}
}

func (e *FractionalEncoder) CanEncode(value interface{}) bool {
	v, ok := value.(float64)
	if !ok {
		return false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return len(balancedDigits(int64(v), int64(e.base))) <= e.integral
}

func (e *FractionalEncoder) Encode(value interface{}) (*rlwe.Plaintext, error) {
	v, ok := value.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: fractional encoder cannot encode %T", ErrUnsupportedType, value)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("cannot Encode: value must be finite, got %f", v)
	}

	intPart := int64(v) // truncation toward zero
	intDigits := balancedDigits(intPart, int64(e.base))
	if len(intDigits) > e.integral {
		return nil, fmt.Errorf("cannot Encode: integer part of %f does not fit in %d coefficients at base %d", v, e.integral, e.base)
	}

	degree := e.params.N()
	coeffs := make([]int64, degree)
	copy(coeffs, intDigits)

	// Base-b expansion of the fractional part, one digit per coefficient,
	// placed top-down with flipped signs.
	sign := int64(1)
	if v < 0 {
		sign = -1
	}
	frac := math.Abs(v - float64(intPart))
	b := float64(e.base)
	for i := 1; i <= e.fractional; i++ {
		frac *= b
		d := math.Floor(frac)
		frac -= d
		coeffs[degree-i] = -sign * int64(d)
	}

	pt := bfv.NewPlaintext(e.params, e.params.MaxLevel())
	pt.IsBatched = false
	if err := e.ecd.Encode(coeffs, pt); err != nil {
		return nil, fmt.Errorf("cannot Encode: %w", err)
	}
	return pt, nil
}

func (e *FractionalEncoder) Decode(pt *rlwe.Plaintext) (interface{}, error) {
	degree := e.params.N()

	coeffs := make([]int64, degree)
	if err := e.ecd.Decode(pt, coeffs); err != nil {
		return nil, fmt.Errorf("cannot Decode: %w", err)
	}

	base := new(big.Int).SetUint64(e.base)

	// Integer part: Horner evaluation at x=base over every coefficient below
	// the fractional region (homomorphic operations can spread digits past
	// the integral budget).
	intAcc := new(big.Int)
	tmp := new(big.Int)
	for i := degree - e.fractional - 1; i >= 0; i-- {
		if intAcc.Sign() == 0 && coeffs[i] == 0 {
			continue
		}
		intAcc.Mul(intAcc, base)
		intAcc.Add(intAcc, tmp.SetInt64(coeffs[i]))
	}

	// Fractional part: sum of -c[N-i] * base^(-i), computed as an integer
	// Horner pass divided by base^fractional.
	fracAcc := new(big.Int)
	for i := 1; i <= e.fractional; i++ {
		fracAcc.Mul(fracAcc, base)
		fracAcc.Sub(fracAcc, tmp.SetInt64(coeffs[degree-i]))
	}

	value := new(big.Float).SetPrec(fracPrecision).SetInt(intAcc)
	if e.fractional > 0 {
		scale := bigfloat.Pow(
			new(big.Float).SetPrec(fracPrecision).SetUint64(e.base),
			new(big.Float).SetPrec(fracPrecision).SetInt64(int64(e.fractional)),
		)
		fracValue := new(big.Float).SetPrec(fracPrecision).SetInt(fracAcc)
		value.Add(value, fracValue.Quo(fracValue, scale))
	}

	f, _ := value.Float64()
	return f, nil
}
