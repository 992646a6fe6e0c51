package sealed

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"

	"github.com/sealedhe/sealed/encoding"
)

// CipherScheme is the entry point of the library: a validated parameter set
// bound to a live engine context. It generates keys, encrypts values and
// decrypts ciphertexts; all homomorphic algebra lives on CipherText.
//
// Two schemes are interchangeable iff their parameter sets are equal; key
// material and the volatile engine context play no role in equality.
type CipherScheme struct {
	params ParameterSet
	ctx    *context
}

// NewCipherScheme validates the parameters and builds the scheme. A coeffMod
// of zero selects the coefficient modulus recommended for the security level
// and degree.
func NewCipherScheme(degree, coeffMod, plainMod uint64, security int) (*CipherScheme, error) {

	params, err := NewParameterSet(degree, coeffMod, plainMod, security)
	if err != nil {
		return nil, err
	}

	ctx, err := newContext(params)
	if err != nil {
		return nil, err
	}

	return &CipherScheme{params: params, ctx: ctx}, nil
}

// Parameters returns the validated parameter set of the scheme.
func (s *CipherScheme) Parameters() ParameterSet {
	return s.params
}

// Equal reports whether the two schemes share structurally equal parameter
// sets.
func (s *CipherScheme) Equal(other *CipherScheme) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.params.Equal(other.params)
}

func (s *CipherScheme) String() string {
	return fmt.Sprintf("CipherScheme(%s)", s.params)
}

// Encrypt selects an encoding strategy for the value, encodes it and
// encrypts the resulting plaintext under the public key. The chosen encoder
// travels with the returned ciphertext and gates every binary operation on
// it. Encoding options tune the strategy; see the encoding package.
func (s *CipherScheme) Encrypt(pk *rlwe.PublicKey, value interface{}, opts ...encoding.Option) (*CipherText, error) {

	enc, err := encoding.ForValue(s.ctx.params, s.ctx.encoder, value, opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	return s.encryptWith(pk, enc, value)
}

// EncryptAs is like Encrypt but uses an explicit encoding descriptor instead
// of inferring the strategy from the value category.
func (s *CipherScheme) EncryptAs(pk *rlwe.PublicKey, value interface{}, desc encoding.Descriptor) (*CipherText, error) {

	enc, err := encoding.New(s.ctx.params, s.ctx.encoder, desc)
	if err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	return s.encryptWith(pk, enc, value)
}

func (s *CipherScheme) encryptWith(pk *rlwe.PublicKey, enc encoding.Encoder, value interface{}) (*CipherText, error) {

	pt, err := enc.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	ct, err := rlwe.NewEncryptor(s.ctx.params, pk).EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	return &CipherText{ct: ct, params: s.params, enc: enc, ctx: s.ctx}, nil
}

// Decrypt decrypts the ciphertext under the secret key and decodes it with
// the encoder it carries. The ciphertext is read, never consumed.
func (s *CipherScheme) Decrypt(sk *rlwe.SecretKey, ct *CipherText) (interface{}, error) {

	if ct == nil || ct.ct == nil {
		return nil, fmt.Errorf("cannot Decrypt: nil ciphertext")
	}
	if !s.params.Equal(ct.params) {
		return nil, fmt.Errorf("cannot Decrypt: ciphertext parameters %s do not match scheme parameters %s", ct.params, s.params)
	}

	return ct.Decrypt(sk)
}

// NoiseBudget returns the invariant noise budget of the ciphertext in bits
// under the secret key. A budget of zero means the ciphertext no longer
// decrypts correctly.
func (s *CipherScheme) NoiseBudget(sk *rlwe.SecretKey, ct *CipherText) (int, error) {
	if ct == nil || ct.ct == nil {
		return 0, fmt.Errorf("cannot compute noise budget: nil ciphertext")
	}
	return ct.NoiseBudget(sk)
}
