package sealed

import (
	"fmt"
	"math/big"
	"math/bits"
	"slices"

	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

// MinLogDegree and MaxLogDegree bound the supported polynomial degrees.
const (
	MinLogDegree = 10
	MaxLogDegree = 16
)

// maxModuliSize is the largest bit-size of a single RNS limb of the
// coefficient modulus accepted by the engine.
const maxModuliSize = 60

// recommendedLogQ maps a security level to the recommended total bit-size of
// the coefficient modulus for each polynomial degree, following the
// HomomorphicEncryption.org standard tables.
var recommendedLogQ = map[int]map[uint64]int{
	128: {1024: 27, 2048: 54, 4096: 109, 8192: 218, 16384: 438, 32768: 881},
	192: {1024: 19, 2048: 37, 4096: 75, 8192: 152, 16384: 305, 32768: 611},
}

// ParameterSet is the validated, immutable description of an encryption
// parameter set. CoeffModulus holds the explicit RNS moduli when the caller
// provided a coefficient modulus, and is left empty when the modulus is
// derived from the security-level recommendation table (the engine then
// generates the moduli chain deterministically from the table entry).
//
// Two parameter sets are equal iff their four fields are equal; object
// identity plays no role.
type ParameterSet struct {
	PolyDegree   uint64   `json:"poly_degree"`
	CoeffModulus []uint64 `json:"coeff_modulus,omitempty"`
	PlainModulus uint64   `json:"plain_modulus"`
	Security     int      `json:"security"`
}

// NewParameterSet validates the given parameters and returns the resulting
// ParameterSet. A coeffMod of zero selects the security-level-derived
// coefficient modulus.
func NewParameterSet(degree, coeffMod, plainMod uint64, security int) (ParameterSet, error) {

	if degree < (1<<MinLogDegree) || degree > (1<<MaxLogDegree) || bits.OnesCount64(degree) != 1 {
		return ParameterSet{}, fmt.Errorf("poly degree must be a power of two in [2^%d, 2^%d], got %d", MinLogDegree, MaxLogDegree, degree)
	}

	if security != 128 && security != 192 {
		return ParameterSet{}, fmt.Errorf("security level must be 128 or 192, got %d", security)
	}

	if plainMod == 0 {
		return ParameterSet{}, fmt.Errorf("plain modulus must be a positive integer")
	}

	p := ParameterSet{
		PolyDegree:   degree,
		PlainModulus: plainMod,
		Security:     security,
	}

	if coeffMod > 0 {
		p.CoeffModulus = []uint64{coeffMod}
	}

	return p, nil
}

// Equal reports whether the two parameter sets are structurally equal.
func (p ParameterSet) Equal(other ParameterSet) bool {
	return p.PolyDegree == other.PolyDegree &&
		slices.Equal(p.CoeffModulus, other.CoeffModulus) &&
		p.PlainModulus == other.PlainModulus &&
		p.Security == other.Security
}

// LogDegree returns log2 of the polynomial degree.
func (p ParameterSet) LogDegree() int {
	return bits.Len64(p.PolyDegree) - 1
}

// BatchingCompatible reports whether the plaintext modulus is prime and
// congruent to 1 modulo twice the polynomial degree, the precondition for
// full CRT batching.
func (p ParameterSet) BatchingCompatible() bool {
	if (p.PlainModulus-1)%(2*p.PolyDegree) != 0 {
		return false
	}
	return new(big.Int).SetUint64(p.PlainModulus).ProbablyPrime(20)
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("ParameterSet(degree=%d, coeff_mod=%v, plain_mod=%d, security=%d)",
		p.PolyDegree, p.CoeffModulus, p.PlainModulus, p.Security)
}

// splitLogQ splits a total coefficient-modulus bit-size into RNS limb sizes
// acceptable to the engine.
func splitLogQ(total int) (logQ []int) {
	n := (total + maxModuliSize - 1) / maxModuliSize
	base := total / n
	rem := total % n
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		logQ = append(logQ, size)
	}
	return
}

// context is the live engine binding derived from a ParameterSet. It is
// volatile state: never serialized, always rebuilt from the ParameterSet.
type context struct {
	params  bfv.Parameters
	encoder *bfv.Encoder
}

// newContext builds the engine context for the given parameter set, wrapping
// any engine-side rejection into a single construction error.
func newContext(p ParameterSet) (*context, error) {

	literal := bfv.ParametersLiteral{
		LogN:             p.LogDegree(),
		PlaintextModulus: p.PlainModulus,
	}

	if len(p.CoeffModulus) > 0 {
		literal.Q = p.CoeffModulus
	} else {
		totalLogQ, ok := recommendedLogQ[p.Security][p.PolyDegree]
		if !ok {
			return nil, fmt.Errorf("illegal parameters: no recommended coefficient modulus for degree %d at security %d", p.PolyDegree, p.Security)
		}
		literal.LogQ = splitLogQ(totalLogQ)
	}

	params, err := bfv.NewParametersFromLiteral(literal)
	if err != nil {
		return nil, fmt.Errorf("illegal parameters: %w", err)
	}

	return &context{
		params:  params,
		encoder: bfv.NewEncoder(params),
	}, nil
}
