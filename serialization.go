package sealed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/zeebo/blake3"

	"github.com/sealedhe/sealed/encoding"
)

// Serialization wraps the engine's binary formats in a small JSON envelope
// carrying the parameter set (so the receiving side can rebuild the engine
// context), the encoding descriptor (so the ciphertext stays bound to its
// encoder across the wire) and a BLAKE3 digest of the payload (so transport
// corruption is caught before the engine parses anything).

const digestSize = 32

func digest(payload []byte) []byte {
	sum := blake3.Sum256(payload)
	return sum[:]
}

type cipherTextEnvelope struct {
	Params     ParameterSet        `json:"params"`
	Descriptor encoding.Descriptor `json:"descriptor"`
	Payload    []byte              `json:"payload"`
	Digest     []byte              `json:"digest"`
}

// MarshalBinary serializes the ciphertext together with its parameter set
// and encoding descriptor.
func (c *CipherText) MarshalBinary() ([]byte, error) {
	if c == nil || c.ct == nil {
		return nil, fmt.Errorf("cannot MarshalBinary: nil ciphertext")
	}

	payload, err := c.ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}

	return json.Marshal(cipherTextEnvelope{
		Params:     c.params,
		Descriptor: c.enc.Descriptor(),
		Payload:    payload,
		Digest:     digest(payload),
	})
}

// UnmarshalBinary rebuilds a ciphertext serialized by MarshalBinary,
// including its engine context and encoder. It fails if the payload digest
// does not match.
func (c *CipherText) UnmarshalBinary(data []byte) error {
	var env cipherTextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	if len(env.Digest) != digestSize || !bytes.Equal(env.Digest, digest(env.Payload)) {
		return fmt.Errorf("cannot UnmarshalBinary: payload digest mismatch")
	}

	ctx, err := newContext(env.Params)
	if err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	enc, err := encoding.New(ctx.params, ctx.encoder, env.Descriptor)
	if err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(env.Payload); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	c.ct = ct
	c.params = env.Params
	c.enc = enc
	c.ctx = ctx
	return nil
}

// MarshalBinary serializes the scheme as its parameter set; key material and
// the engine context are never part of the stream.
func (s *CipherScheme) MarshalBinary() ([]byte, error) {
	return json.Marshal(s.params)
}

// UnmarshalBinary rebuilds a scheme from a serialized parameter set,
// revalidating it and rebuilding the engine context.
func (s *CipherScheme) UnmarshalBinary(data []byte) error {
	var params ParameterSet
	if err := json.Unmarshal(data, &params); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	rebuilt, err := NewCipherScheme(params.PolyDegree, firstOrZero(params.CoeffModulus), params.PlainModulus, params.Security)
	if err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	*s = *rebuilt
	return nil
}

func firstOrZero(moduli []uint64) uint64 {
	if len(moduli) == 0 {
		return 0
	}
	return moduli[0]
}

type keySetEnvelope struct {
	Public  []byte `json:"public"`
	Secret  []byte `json:"secret"`
	Digest  []byte `json:"digest"`
	Version string `json:"version"`
}

// MarshalBinary serializes the key pair. The stream contains the secret key;
// it is the caller's job to keep it off untrusted channels.
func (k *KeySet) MarshalBinary() ([]byte, error) {
	pk, err := k.Public.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}
	sk, err := k.Secret.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}
	return json.Marshal(keySetEnvelope{
		Public:  pk,
		Secret:  sk,
		Digest:  digest(append(append([]byte{}, pk...), sk...)),
		Version: Version,
	})
}

// UnmarshalBinary rebuilds a key pair serialized by MarshalBinary.
func (k *KeySet) UnmarshalBinary(data []byte) error {
	var env keySetEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}
	if !bytes.Equal(env.Digest, digest(append(append([]byte{}, env.Public...), env.Secret...))) {
		return fmt.Errorf("cannot UnmarshalBinary: payload digest mismatch")
	}

	pk := new(rlwe.PublicKey)
	if err := pk.UnmarshalBinary(env.Public); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}
	sk := new(rlwe.SecretKey)
	if err := sk.UnmarshalBinary(env.Secret); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	k.Public, k.Secret = pk, sk
	return nil
}

type evaluationKeySetEnvelope struct {
	BitDecomposition int      `json:"bit_decomposition"`
	Keys             [][]byte `json:"keys"`
}

// MarshalBinary serializes the evaluation-key set.
func (e *EvaluationKeySet) MarshalBinary() ([]byte, error) {
	env := evaluationKeySetEnvelope{BitDecomposition: e.BitDecomposition}
	for _, key := range e.Keys {
		b, err := key.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
		}
		env.Keys = append(env.Keys, b)
	}
	return json.Marshal(env)
}

// UnmarshalBinary rebuilds an evaluation-key set serialized by
// MarshalBinary.
func (e *EvaluationKeySet) UnmarshalBinary(data []byte) error {
	var env evaluationKeySetEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	keys := make([]*rlwe.RelinearizationKey, 0, len(env.Keys))
	for _, b := range env.Keys {
		key := new(rlwe.RelinearizationKey)
		if err := key.UnmarshalBinary(b); err != nil {
			return fmt.Errorf("cannot UnmarshalBinary: %w", err)
		}
		keys = append(keys, key)
	}

	e.BitDecomposition = env.BitDecomposition
	e.Keys = keys
	return nil
}

type rotationKeySetEnvelope struct {
	BitDecomposition int      `json:"bit_decomposition"`
	Keys             [][]byte `json:"keys"`
}

// MarshalBinary serializes the rotation-key set.
func (r *RotationKeySet) MarshalBinary() ([]byte, error) {
	env := rotationKeySetEnvelope{BitDecomposition: r.BitDecomposition}
	for _, key := range r.Keys {
		b, err := key.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
		}
		env.Keys = append(env.Keys, b)
	}
	return json.Marshal(env)
}

// UnmarshalBinary rebuilds a rotation-key set serialized by MarshalBinary.
func (r *RotationKeySet) UnmarshalBinary(data []byte) error {
	var env rotationKeySetEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	keys := make([]*rlwe.GaloisKey, 0, len(env.Keys))
	for _, b := range env.Keys {
		key := new(rlwe.GaloisKey)
		if err := key.UnmarshalBinary(b); err != nil {
			return fmt.Errorf("cannot UnmarshalBinary: %w", err)
		}
		keys = append(keys, key)
	}

	r.BitDecomposition = env.BitDecomposition
	r.Keys = keys
	return nil
}
