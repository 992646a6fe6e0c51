package sealed

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"

	"github.com/sealedhe/sealed/encoding"
)

// CipherText is an encrypted value bound to the encoder that produced its
// plaintext and to the parameter set it was encrypted under. Every operation
// is non-destructive: operands are read, never modified, and a fresh
// ciphertext is returned.
//
// Binary operations accept either another CipherText or a plain value. A
// CipherText operand must carry an interchangeable encoder (same strategy,
// same descriptor); a plain operand must be encodable by the receiver's own
// encoder. Mixing encodings is an error, not a coercion.
type CipherText struct {
	ct     *rlwe.Ciphertext
	params ParameterSet
	enc    encoding.Encoder
	ctx    *context
}

// Size returns the number of polynomial components of the ciphertext. A
// fresh encryption has size 2; each multiplication grows the result to
// op0.Size() + op1.Size() - 1 until relinearization brings it back to 2.
func (c *CipherText) Size() int {
	return c.ct.Degree() + 1
}

// Encoding returns the descriptor of the encoder bound to the ciphertext.
func (c *CipherText) Encoding() encoding.Descriptor {
	return c.enc.Descriptor()
}

func (c *CipherText) String() string {
	return fmt.Sprintf("CipherText(size=%d, encoding=%s)", c.Size(), c.enc.Descriptor())
}

// evaluator returns a key-less engine evaluator; operations that need key
// material build their own via bfv.NewEvaluator with an explicit key set.
func (c *CipherText) evaluator() *bfv.Evaluator {
	return bfv.NewEvaluator(c.ctx.params, nil)
}

// operand resolves a binary-operation operand to an engine operand. A
// CipherText passes the encoder-compatibility gate; anything else must be
// encodable by the receiver's encoder and is encoded fresh.
func (c *CipherText) operand(verb string, op interface{}) (rlwe.Operand, error) {
	if other, ok := op.(*CipherText); ok {
		if other == nil || other.ct == nil {
			return nil, fmt.Errorf("cannot %s: nil ciphertext operand", verb)
		}
		if !c.params.Equal(other.params) {
			return nil, fmt.Errorf("cannot %s: operand parameters %s do not match %s", verb, other.params, c.params)
		}
		if !encoding.Equal(c.enc, other.enc) {
			return nil, fmt.Errorf("cannot %s: operand encoding %s does not match %s", verb, other.enc.Descriptor(), c.enc.Descriptor())
		}
		return other.ct, nil
	}

	if !c.enc.CanEncode(op) {
		return nil, fmt.Errorf("cannot %s: %s encoder cannot encode operand %v (%T)", verb, c.enc.Descriptor(), op, op)
	}
	pt, err := c.enc.Encode(op)
	if err != nil {
		return nil, fmt.Errorf("cannot %s: %w", verb, err)
	}
	return pt, nil
}

func (c *CipherText) derive(ct *rlwe.Ciphertext) *CipherText {
	return &CipherText{ct: ct, params: c.params, enc: c.enc, ctx: c.ctx}
}

// Add returns the homomorphic sum of the receiver and the operand, which is
// either a compatible CipherText or a plain value of the receiver's
// encoding.
func (c *CipherText) Add(op interface{}) (*CipherText, error) {
	operand, err := c.operand("Add", op)
	if err != nil {
		return nil, err
	}
	out, err := c.evaluator().AddNew(c.ct, operand)
	if err != nil {
		return nil, fmt.Errorf("cannot Add: %w", err)
	}
	return c.derive(out), nil
}

// Neg returns the additive inverse of the ciphertext. Negation is local
// coefficient arithmetic; it consumes no noise budget and needs no keys.
func (c *CipherText) Neg() *CipherText {
	out := c.ct.CopyNew()
	ringQ := c.ctx.params.RingQ().AtLevel(out.Level())
	for i := range out.Value {
		ringQ.Neg(out.Value[i], out.Value[i])
	}
	return c.derive(out)
}

// Sub subtracts the receiver from the operand: c.Sub(op) is op - c, computed
// as op + (-c). The operand is either a compatible CipherText or a plain
// value of the receiver's encoding.
func (c *CipherText) Sub(op interface{}) (*CipherText, error) {
	neg := c.Neg()
	out, err := neg.Add(op)
	if err != nil {
		return nil, fmt.Errorf("cannot Sub: %w", err)
	}
	return out, nil
}

// Mul returns the homomorphic product of the receiver and the operand. Both
// inputs must have size 2; the result has size 3 until relinearized.
//
// A plain operand of literal zero is rejected: the product would be a
// degenerate encryption of zero, which is almost always a caller error.
func (c *CipherText) Mul(op interface{}) (*CipherText, error) {
	switch v := op.(type) {
	case int:
		if v == 0 {
			return nil, fmt.Errorf("cannot Mul: multiplication by plain zero is not supported")
		}
	case int64:
		if v == 0 {
			return nil, fmt.Errorf("cannot Mul: multiplication by plain zero is not supported")
		}
	case float64:
		if v == 0 {
			return nil, fmt.Errorf("cannot Mul: multiplication by plain zero is not supported")
		}
	}

	operand, err := c.operand("Mul", op)
	if err != nil {
		return nil, err
	}
	out, err := c.evaluator().MulNew(c.ct, operand)
	if err != nil {
		return nil, fmt.Errorf("cannot Mul: %w", err)
	}
	return c.derive(out), nil
}

// Pow raises the ciphertext to the p-th power, p >= 1, by recursive
// square-and-multiply. Pow(1) returns the receiver unchanged; Pow(2) is a
// single multiplication and leaves the result at size 3.
//
// For p > 2 the engine requires size-2 inputs at every multiplication, so
// intermediate squares must be relinearized: supply an evaluation-key set
// for that, or the engine's size error surfaces at the first oversized
// multiply. The final product is never relinearized.
func (c *CipherText) Pow(p int, ek ...*EvaluationKeySet) (*CipherText, error) {
	if p < 1 {
		return nil, fmt.Errorf("cannot Pow: exponent must be positive, got %d", p)
	}
	if p == 1 {
		return c, nil
	}

	square, err := c.Mul(c)
	if err != nil {
		return nil, fmt.Errorf("cannot Pow: %w", err)
	}
	if p == 2 {
		return square, nil
	}

	if square, err = square.reduce(ek); err != nil {
		return nil, fmt.Errorf("cannot Pow: %w", err)
	}

	half, err := square.Pow(p/2, ek...)
	if err != nil {
		return nil, err
	}
	if p%2 == 0 {
		return half, nil
	}

	if half, err = half.reduce(ek); err != nil {
		return nil, fmt.Errorf("cannot Pow: %w", err)
	}
	out, err := half.Mul(c)
	if err != nil {
		return nil, fmt.Errorf("cannot Pow: %w", err)
	}
	return out, nil
}

// reduce relinearizes the ciphertext back to size 2 when keys are available
// and the size requires it.
func (c *CipherText) reduce(ek []*EvaluationKeySet) (*CipherText, error) {
	if len(ek) == 0 || c.Size() <= 2 {
		return c, nil
	}
	return c.Relinearize(ek[0])
}

// Relinearize shrinks a post-multiplication ciphertext back to size 2. It
// consumes max(size-2, 1) relinearization keys: a size-2 input is returned
// as a fresh copy but still demands a non-empty key set.
func (c *CipherText) Relinearize(ek *EvaluationKeySet) (*CipherText, error) {
	if ek == nil {
		return nil, fmt.Errorf("cannot Relinearize: nil evaluation key set")
	}
	if ek.BitDecomposition < DBCMin || ek.BitDecomposition > DBCMax {
		return nil, fmt.Errorf("cannot Relinearize: decomposition bit count must lie in [%d, %d], got %d", DBCMin, DBCMax, ek.BitDecomposition)
	}

	needed := c.Size() - 2
	if needed < 1 {
		needed = 1
	}
	if len(ek.Keys) < needed {
		return nil, fmt.Errorf("cannot Relinearize: size-%d ciphertext needs %d evaluation keys, key set holds %d", c.Size(), needed, len(ek.Keys))
	}

	if c.Size() == 2 {
		return c.derive(c.ct.CopyNew()), nil
	}

	// The engine consumes a single relinearization key for the degree-2 to
	// degree-1 step; the count check above is the key-set contract, not an
	// engine requirement.
	eval := bfv.NewEvaluator(c.ctx.params, rlwe.NewMemEvaluationKeySet(ek.Keys[0]))
	out := c.ct.CopyNew()
	if err := eval.Relinearize(c.ct, out); err != nil {
		return nil, fmt.Errorf("cannot Relinearize: %w", err)
	}
	return c.derive(out), nil
}

// Decrypt decrypts the ciphertext under the secret key and decodes it with
// the encoder it carries. The ciphertext is read, never consumed.
func (c *CipherText) Decrypt(sk *rlwe.SecretKey) (interface{}, error) {
	pt := rlwe.NewDecryptor(c.ctx.params, sk).DecryptNew(c.ct)
	value, err := c.enc.Decode(pt)
	if err != nil {
		return nil, fmt.Errorf("cannot Decrypt: %w", err)
	}
	return value, nil
}

// NoiseBudget returns the invariant noise budget of the ciphertext in bits
// under the secret key. A budget of zero means the ciphertext no longer
// decrypts correctly.
func (c *CipherText) NoiseBudget(sk *rlwe.SecretKey) (int, error) {
	return noiseBudget(c.ctx.params, sk, c.ct)
}

// Roll cyclically rotates a batched 2 x (N/2) matrix ciphertext along one
// axis, matching the semantics of rotating the plain matrix: elements
// shifted past the edge wrap around. Axis 0 rotates rows and accepts only
// shifts of -1, 0 or 1 (the two rows swap); axis 1 rotates every row's
// columns by the same shift, positive shifts moving elements toward higher
// column indices.
func (c *CipherText) Roll(rk *RotationKeySet, shift, axis int) (*CipherText, error) {
	if err := c.rollPreconditions(rk); err != nil {
		return nil, err
	}

	switch axis {
	case 0:
		return c.rollRows(rk, shift)
	case 1:
		return c.rollColumns(rk, shift)
	default:
		return nil, fmt.Errorf("cannot Roll: axis must be 0 or 1, got %d", axis)
	}
}

// Roll2D rotates along both axes, rows first, then columns.
func (c *CipherText) Roll2D(rk *RotationKeySet, rowShift, colShift int) (*CipherText, error) {
	out, err := c.Roll(rk, rowShift, 0)
	if err != nil {
		return nil, err
	}
	return out.Roll(rk, colShift, 1)
}

func (c *CipherText) rollPreconditions(rk *RotationKeySet) error {
	if rk == nil {
		return fmt.Errorf("cannot Roll: nil rotation key set (parameters may not support batching)")
	}

	desc := c.enc.Descriptor()
	if desc.Kind != encoding.KindBatched {
		return fmt.Errorf("cannot Roll: rotation requires a batched ciphertext, got encoding %s", desc)
	}
	if desc.Rows != 2 {
		return fmt.Errorf("cannot Roll: rotation requires a 2x%d matrix, got %dx%d", int(c.params.PolyDegree)/2, desc.Rows, desc.Cols)
	}
	return nil
}

func (c *CipherText) rollRows(rk *RotationKeySet, shift int) (*CipherText, error) {
	switch shift {
	case 0:
		return c.derive(c.ct.CopyNew()), nil
	case 1, -1:
	default:
		return nil, fmt.Errorf("cannot Roll: row rotation supports shifts of -1, 0 or 1, got %d", shift)
	}

	eval := bfv.NewEvaluator(c.ctx.params, rlwe.NewMemEvaluationKeySet(nil, rk.Keys...))
	out, err := eval.RotateRowsNew(c.ct)
	if err != nil {
		return nil, fmt.Errorf("cannot Roll: %w", err)
	}
	return c.derive(out), nil
}

func (c *CipherText) rollColumns(rk *RotationKeySet, shift int) (*CipherText, error) {
	cols := c.enc.Descriptor().Cols

	// The engine rotates columns to the left; a positive roll toward higher
	// indices is a left rotation by cols-shift.
	k := ((-shift)%cols + cols) % cols
	if k == 0 {
		return c.derive(c.ct.CopyNew()), nil
	}

	eval := bfv.NewEvaluator(c.ctx.params, rlwe.NewMemEvaluationKeySet(nil, rk.Keys...))

	// Decompose into the power-of-two rotations the key set covers.
	out := c.ct
	for step := 1; k > 0; step, k = step<<1, k>>1 {
		if k&1 == 0 {
			continue
		}
		rotated, err := eval.RotateColumnsNew(out, step)
		if err != nil {
			return nil, fmt.Errorf("cannot Roll: %w", err)
		}
		out = rotated
	}
	return c.derive(out), nil
}
