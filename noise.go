package sealed

import (
	"fmt"
	"math/big"

	"github.com/montanaflynn/stats"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
)

// noiseBudget computes the invariant noise budget of ct in bits. The
// ciphertext is decrypted, the decrypted plaintext is rounded to its nearest
// encoding of a message, and the rounding residue is the noise: the budget
// is how many more bits the noise may grow before the message is lost.
func noiseBudget(params bfv.Parameters, sk *rlwe.SecretKey, ct *rlwe.Ciphertext) (int, error) {

	noise, err := noisePoly(params, sk, ct)
	if err != nil {
		return 0, err
	}

	maxErr := new(big.Int)
	abs := new(big.Int)
	for _, c := range noise {
		if abs.Abs(c).Cmp(maxErr) > 0 {
			maxErr.Set(abs)
		}
	}

	q := params.RingQ().AtLevel(ct.Level()).ModulusAtLevel[ct.Level()]
	t := new(big.Int).SetUint64(uint64(params.PlaintextModulus()))

	// Invariant noise v satisfies |v| < 1/2 iff decryption is exact; the
	// budget is log2(q / (2*t*|e|)) for the centered residue e.
	budget := q.BitLen() - t.BitLen() - maxErr.BitLen() - 1
	if budget < 0 {
		budget = 0
	}
	return budget, nil
}

// NoiseStats describes the distribution of the noise residue of a
// ciphertext: per-coefficient mean, standard deviation and maximum absolute
// value, plus the remaining budget in bits.
type NoiseStats struct {
	Budget int
	Mean   float64
	StdDev float64
	MaxAbs float64
}

// NoiseBudgetStats computes the noise distribution of the ciphertext under
// the secret key, a diagnostic superset of NoiseBudget.
func (s *CipherScheme) NoiseBudgetStats(sk *rlwe.SecretKey, ct *CipherText) (NoiseStats, error) {

	if ct == nil || ct.ct == nil {
		return NoiseStats{}, fmt.Errorf("cannot compute noise stats: nil ciphertext")
	}

	noise, err := noisePoly(s.ctx.params, sk, ct.ct)
	if err != nil {
		return NoiseStats{}, err
	}

	samples := make(stats.Float64Data, len(noise))
	for i, c := range noise {
		f, _ := new(big.Float).SetInt(c).Float64()
		samples[i] = f
	}

	mean, err := stats.Mean(samples)
	if err != nil {
		return NoiseStats{}, fmt.Errorf("cannot compute noise stats: %w", err)
	}
	std, err := stats.StandardDeviation(samples)
	if err != nil {
		return NoiseStats{}, fmt.Errorf("cannot compute noise stats: %w", err)
	}

	var maxAbs float64
	for _, f := range samples {
		if f < 0 {
			f = -f
		}
		if f > maxAbs {
			maxAbs = f
		}
	}

	budget, err := noiseBudget(s.ctx.params, sk, ct.ct)
	if err != nil {
		return NoiseStats{}, err
	}

	return NoiseStats{Budget: budget, Mean: mean, StdDev: std, MaxAbs: maxAbs}, nil
}

// noisePoly extracts the centered noise residue of ct: the difference
// between the decrypted plaintext and the exact re-encoding of the message
// it rounds to, one big.Int per coefficient.
func noisePoly(params bfv.Parameters, sk *rlwe.SecretKey, ct *rlwe.Ciphertext) ([]*big.Int, error) {

	pt := rlwe.NewDecryptor(params, sk).DecryptNew(ct)

	ecd := bfv.NewEncoder(params)

	values := make([]uint64, params.N())
	if err := ecd.Decode(pt, values); err != nil {
		return nil, fmt.Errorf("cannot compute noise: %w", err)
	}

	clean := bfv.NewPlaintext(params, pt.Level())
	*clean.MetaData = *pt.MetaData
	if err := ecd.Encode(values, clean); err != nil {
		return nil, fmt.Errorf("cannot compute noise: %w", err)
	}

	ringQ := params.RingQ().AtLevel(pt.Level())
	ringQ.Sub(pt.Value, clean.Value, pt.Value)
	if pt.IsNTT {
		ringQ.INTT(pt.Value, pt.Value)
	}

	noise := make([]*big.Int, ringQ.N())
	for i := range noise {
		noise[i] = new(big.Int)
	}
	ringQ.PolyToBigintCentered(pt.Value, 1, noise)

	return noise, nil
}
