package sealed

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/utils"
)

// DBCMin and DBCMax bound the decomposition bit count accepted by key
// generation. A large decomposition bit count makes relinearization fast but
// consumes more noise budget; a small one is slower but gentler on the
// budget.
const (
	DBCMin = 1
	DBCMax = 60
)

// KeySet is a fresh public/secret key pair.
type KeySet struct {
	Public *rlwe.PublicKey
	Secret *rlwe.SecretKey
}

// EvaluationKeySet bundles the relinearization keys generated for a given
// decomposition bit count. Relinearizing a ciphertext of size M back to size
// 2 consumes max(M-2, 1) keys.
type EvaluationKeySet struct {
	BitDecomposition int
	Keys             []*rlwe.RelinearizationKey
}

// RotationKeySet bundles the Galois keys for matrix rotation: the row swap
// plus every power-of-two column shift.
type RotationKeySet struct {
	BitDecomposition int
	Keys             []*rlwe.GaloisKey
}

// GenerateKeys produces fresh key material: a public/secret key pair, an
// evaluation-key set of evalKeyCount relinearization keys, and a rotation-key
// set. Every call draws independent fresh randomness; nothing is cached.
//
// When the parameter set is not batching-compatible the rotation-key attempt
// degrades to a nil RotationKeySet instead of failing.
func (s *CipherScheme) GenerateKeys(dbc, evalKeyCount int) (*KeySet, *EvaluationKeySet, *RotationKeySet, error) {

	if dbc < DBCMin || dbc > DBCMax {
		return nil, nil, nil, fmt.Errorf("decomposition bit count must lie in [%d, %d], got %d", DBCMin, DBCMax, dbc)
	}
	if evalKeyCount <= 0 {
		return nil, nil, nil, fmt.Errorf("evaluation key count must be positive, got %d", evalKeyCount)
	}

	kgen := rlwe.NewKeyGenerator(s.ctx.params)
	sk, pk := kgen.GenKeyPairNew()

	evkParams := rlwe.EvaluationKeyParameters{BaseTwoDecomposition: utils.Pointy(dbc)}

	ek := &EvaluationKeySet{BitDecomposition: dbc}
	for i := 0; i < evalKeyCount; i++ {
		ek.Keys = append(ek.Keys, kgen.GenRelinearizationKeyNew(sk, evkParams))
	}

	return &KeySet{Public: pk, Secret: sk}, ek, s.generateRotationKeys(kgen, sk, dbc, evkParams), nil
}

// generateRotationKeys degrades to nil when the parameter set does not
// support batching; there is nothing a Galois key could rotate then.
func (s *CipherScheme) generateRotationKeys(kgen *rlwe.KeyGenerator, sk *rlwe.SecretKey, dbc int, evkParams rlwe.EvaluationKeyParameters) *RotationKeySet {

	if !s.params.BatchingCompatible() {
		return nil
	}

	// Row swap plus all power-of-two column shifts; arbitrary shifts are
	// composed from these at rotation time.
	galEls := []uint64{s.ctx.params.GaloisElementForRowRotation()}
	for k := 1; k < s.ctx.params.N()>>1; k <<= 1 {
		galEls = append(galEls, s.ctx.params.GaloisElement(k))
	}

	return &RotationKeySet{BitDecomposition: dbc, Keys: kgen.GenGaloisKeysNew(galEls, sk, evkParams)}
}
