package encoding

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/bfv"
	"golang.org/x/exp/constraints"
)

// BatchedEncoder encodes a two-dimensional integer matrix element-wise into
// the CRT slots of a single plaintext polynomial, flattening row-major. It
// requires a plaintext modulus that is prime and congruent to 1 modulo twice
// the polynomial degree, and a matrix shape whose row-column product equals
// the degree.
//
// When constructed without an explicit shape, the first successful Encode
// locks the shape for the lifetime of the encoder; subsequent calls must
// match it exactly. Decode reads the plaintext without consuming it and
// reshapes the slot values to the locked shape.
type BatchedEncoder struct {
	params bfv.Parameters
	ecd    *bfv.Encoder

	// rows and cols are zero until locked.
	rows, cols int
}

func newBatchedEncoder(params bfv.Parameters, ecd *bfv.Encoder, cfg config) (*BatchedEncoder, error) {
	if params.MaxSlots() != params.N() {
		return nil, fmt.Errorf("batched encoding requires a plaintext modulus that is prime and 1 mod %d, got %d", 2*params.N(), params.PlaintextModulus())
	}

	e := &BatchedEncoder{params: params, ecd: ecd}

	if cfg.rows != 0 || cfg.cols != 0 {
		if err := e.lock(cfg.rows, cfg.cols); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *BatchedEncoder) Descriptor() Descriptor {
	return Descriptor{Kind: KindBatched, Rows: e.rows, Cols: e.cols}
}

// Shape returns the locked matrix shape, or (0, 0) before the first encode.
func (e *BatchedEncoder) Shape() (rows, cols int) {
	return e.rows, e.cols
}

func (e *BatchedEncoder) lock(rows, cols int) error {
	if rows <= 0 || cols <= 0 || rows*cols != e.params.N() {
		return fmt.Errorf("matrix shape %dx%d does not multiply out to the polynomial degree %d", rows, cols, e.params.N())
	}
	e.rows, e.cols = rows, cols
	return nil
}

func (e *BatchedEncoder) CanEncode(value interface{}) bool {
	_, rows, cols, err := flattenMatrix(value)
	if err != nil {
		return false
	}
	if e.rows != 0 {
		return rows == e.rows && cols == e.cols
	}
	return rows*cols == e.params.N()
}

func (e *BatchedEncoder) Encode(value interface{}) (*rlwe.Plaintext, error) {
	flat, rows, cols, err := flattenMatrix(value)
	if err != nil {
		return nil, err
	}

	if e.rows == 0 {
		if err := e.lock(rows, cols); err != nil {
			return nil, err
		}
	} else if rows != e.rows || cols != e.cols {
		return nil, fmt.Errorf("%w: got %dx%d, encoder locked to %dx%d", ErrShapeMismatch, rows, cols, e.rows, e.cols)
	}

	pt := bfv.NewPlaintext(e.params, e.params.MaxLevel())
	if err := e.ecd.Encode(flat, pt); err != nil {
		return nil, fmt.Errorf("cannot Encode: %w", err)
	}
	return pt, nil
}

func (e *BatchedEncoder) Decode(pt *rlwe.Plaintext) (interface{}, error) {
	if e.rows == 0 {
		return nil, fmt.Errorf("cannot Decode: batched encoder has no locked shape")
	}

	flat := make([]int64, e.params.MaxSlots())
	if err := e.ecd.Decode(pt, flat); err != nil {
		return nil, fmt.Errorf("cannot Decode: %w", err)
	}

	mat := make([][]int64, e.rows)
	for r := range mat {
		mat[r] = flat[r*e.cols : (r+1)*e.cols]
	}
	return mat, nil
}

// flattenMatrix flattens a rectangular [][]int64 or [][]int row-major.
func flattenMatrix(value interface{}) (flat []int64, rows, cols int, err error) {
	switch m := value.(type) {
	case [][]int64:
		return flattenRows(m)
	case [][]int:
		return flattenRows(m)
	default:
		return nil, 0, 0, fmt.Errorf("%w: batched encoder cannot encode %T", ErrUnsupportedType, value)
	}
}

func flattenRows[T constraints.Signed](m [][]T) (flat []int64, rows, cols int, err error) {
	rows = len(m)
	if rows == 0 {
		return nil, 0, 0, fmt.Errorf("%w: empty matrix", ErrUnsupportedType)
	}
	cols = len(m[0])
	flat = make([]int64, 0, rows*cols)
	for _, row := range m {
		if len(row) != cols {
			return nil, 0, 0, fmt.Errorf("%w: ragged matrix", ErrShapeMismatch)
		}
		for _, v := range row {
			flat = append(flat, int64(v))
		}
	}
	return flat, rows, cols, nil
}
