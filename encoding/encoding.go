// Package encoding implements the plaintext encoding strategies of the
// sealed library: balanced base-b integer encoding, fixed-point rational
// encoding and CRT-slot batched matrix encoding. Each strategy converts
// application values to and from engine plaintext polynomials and carries a
// Descriptor used for operand-compatibility checks and serialization.
package encoding

import (
	"errors"
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

// Kind enumerates the encoding strategies.
type Kind int

const (
	// KindInteger encodes signed integers by balanced base-b digit expansion.
	KindInteger Kind = iota
	// KindFractional encodes fixed-point rationals with separate integral and
	// fractional coefficient budgets.
	KindFractional
	// KindBatched encodes two-dimensional integer matrices element-wise into
	// the CRT slots of a single plaintext.
	KindBatched
)

var kindToString = [...]string{"Integer", "Fractional", "Batched"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindToString) {
		return "invalid"
	}
	return kindToString[k]
}

var (
	// ErrUnsupportedType is returned when no encoding strategy matches the
	// value category.
	ErrUnsupportedType = errors.New("unsupported plaintext type")

	// ErrShapeMismatch is returned when a matrix does not match the locked
	// shape of a batched encoder.
	ErrShapeMismatch = errors.New("matrix shape does not match encoder shape")
)

// Descriptor identifies an encoder for equality and serialization purposes.
// Two descriptors are equal iff they have the same kind and the same fields.
// Fields irrelevant to a kind are left at their zero value.
type Descriptor struct {
	Kind             Kind   `json:"kind"`
	Base             uint64 `json:"base,omitempty"`
	Unsigned         bool   `json:"unsigned,omitempty"`
	IntegralCoeffs   int    `json:"integral_coeffs,omitempty"`
	FractionalCoeffs int    `json:"fractional_coeffs,omitempty"`
	Rows             int    `json:"rows,omitempty"`
	Cols             int    `json:"cols,omitempty"`
}

func (d Descriptor) String() string {
	switch d.Kind {
	case KindInteger:
		return fmt.Sprintf("Integer(base=%d, unsigned=%t)", d.Base, d.Unsigned)
	case KindFractional:
		return fmt.Sprintf("Fractional(base=%d, integral=%d, fractional=%d)", d.Base, d.IntegralCoeffs, d.FractionalCoeffs)
	case KindBatched:
		return fmt.Sprintf("Batched(rows=%d, cols=%d)", d.Rows, d.Cols)
	}
	return "invalid"
}

// Encoder converts application values to and from plaintext polynomials.
// Implementations own an opaque engine handle plus their Descriptor; there is
// no inheritance between strategies.
type Encoder interface {
	// Descriptor returns the current descriptor of the encoder. For a
	// shape-less batched encoder the shape fields are zero until the first
	// successful Encode locks them.
	Descriptor() Descriptor

	// CanEncode reports whether the value belongs to the category accepted
	// by this encoder and fits its budgets.
	CanEncode(value interface{}) bool

	// Encode converts the value into a fresh plaintext polynomial.
	Encode(value interface{}) (*rlwe.Plaintext, error)

	// Decode converts a plaintext polynomial back into an application value.
	// The plaintext is read, never consumed.
	Decode(pt *rlwe.Plaintext) (interface{}, error)
}

// Equal reports whether two encoders are interchangeable for the purpose of
// binary ciphertext operations: same strategy, same descriptor fields.
func Equal(a, b Encoder) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Descriptor() == b.Descriptor()
}

// Budget expresses a coefficient budget either as an absolute coefficient
// count or as a fraction of the available polynomial degree. The zero value
// is the default fraction of 0.4.
type Budget struct {
	count   int
	ratio   float64
	isCount bool
	set     bool
}

// Coeffs returns a Budget of exactly n coefficients.
func Coeffs(n int) Budget {
	return Budget{count: n, isCount: true, set: true}
}

// Fraction returns a Budget of x times the available degree, x in [0, 1].
func Fraction(x float64) Budget {
	return Budget{ratio: x, set: true}
}

// resolve turns the budget into an absolute coefficient count for the given
// polynomial degree.
func (b Budget) resolve(degree int) (int, error) {
	if !b.set {
		return int(0.4 * float64(degree)), nil
	}
	if b.isCount {
		if b.count < 0 {
			return 0, fmt.Errorf("coefficient budget must be non-negative, got %d", b.count)
		}
		return b.count, nil
	}
	if b.ratio < 0 || b.ratio > 1 {
		return 0, fmt.Errorf("fractional budget must lie in [0, 1], got %f", b.ratio)
	}
	return int(b.ratio * float64(degree)), nil
}

type config struct {
	base       uint64
	unsigned   bool
	integral   Budget
	fractional Budget
	rows, cols int
}

// Option customizes encoder construction.
type Option func(*config)

// WithBase sets the digit-expansion base for integer and fractional
// encoders. The default base is 2.
func WithBase(base uint64) Option {
	return func(c *config) { c.base = base }
}

// AsUnsigned restricts an integer encoder to non-negative values and selects
// the unsigned decoding path.
func AsUnsigned() Option {
	return func(c *config) { c.unsigned = true }
}

// WithIntegralBudget sets the coefficient budget of the integral part of a
// fractional encoder.
func WithIntegralBudget(b Budget) Option {
	return func(c *config) { c.integral = b }
}

// WithFractionalBudget sets the coefficient budget of the fractional part of
// a fractional encoder.
func WithFractionalBudget(b Budget) Option {
	return func(c *config) { c.fractional = b }
}

// WithShape pins the matrix shape of a batched encoder instead of inferring
// it from the first encoded matrix.
func WithShape(rows, cols int) Option {
	return func(c *config) { c.rows, c.cols = rows, cols }
}

func newConfig(opts []Option) config {
	c := config{base: 2}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// ForValue classifies the value into one of the three encoding strategies
// and returns a matching encoder. It fails with ErrUnsupportedType when no
// strategy accepts the value category.
func ForValue(params bfv.Parameters, ecd *bfv.Encoder, value interface{}, opts ...Option) (Encoder, error) {
	cfg := newConfig(opts)

	switch value.(type) {
	case int, int64:
		return newIntegerEncoder(params, ecd, cfg)
	case float64:
		return newFractionalEncoder(params, ecd, cfg)
	case [][]int64, [][]int:
		return newBatchedEncoder(params, ecd, cfg)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}

// New builds an encoder from an explicit descriptor, the path taken by
// explicit category requests and by deserialization.
func New(params bfv.Parameters, ecd *bfv.Encoder, desc Descriptor) (Encoder, error) {
	switch desc.Kind {
	case KindInteger:
		return newIntegerEncoder(params, ecd, config{base: desc.Base, unsigned: desc.Unsigned})
	case KindFractional:
		return newFractionalEncoder(params, ecd, config{
			base:       desc.Base,
			integral:   Coeffs(desc.IntegralCoeffs),
			fractional: Coeffs(desc.FractionalCoeffs),
		})
	case KindBatched:
		return newBatchedEncoder(params, ecd, config{rows: desc.Rows, cols: desc.Cols})
	default:
		return nil, fmt.Errorf("%w: unknown encoder kind %d", ErrUnsupportedType, desc.Kind)
	}
}
