package sealed

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/sealedhe/sealed/encoding"
)

// rollRef is the plain-matrix reference for Roll: a cyclic rotation along
// one axis, elements shifted past the edge wrapping around.
func rollRef(m [][]int64, shift, axis int) [][]int64 {
	rows, cols := len(m), len(m[0])
	out := make([][]int64, rows)
	for r := range out {
		out[r] = make([]int64, cols)
	}
	for r := range m {
		for c := range m[r] {
			switch axis {
			case 0:
				out[(r+shift%rows+rows)%rows][c] = m[r][c]
			case 1:
				out[r][(c+shift%cols+cols)%cols] = m[r][c]
			}
		}
	}
	return out
}

func TestRollReference(t *testing.T) {
	mat := [][]int64{{1, 2, 3, 4}, {5, 6, 7, 8}}

	require.Equal(t, [][]int64{{5, 6, 7, 8}, {1, 2, 3, 4}}, rollRef(mat, 1, 0))
	require.Equal(t, [][]int64{{5, 6, 7, 8}, {1, 2, 3, 4}}, rollRef(mat, -1, 0))
	require.Equal(t, mat, rollRef(mat, 0, 0))

	require.Equal(t, [][]int64{{4, 1, 2, 3}, {8, 5, 6, 7}}, rollRef(mat, 1, 1))
	require.Equal(t, [][]int64{{2, 3, 4, 1}, {6, 7, 8, 5}}, rollRef(mat, -1, 1))
	require.Equal(t, [][]int64{{2, 3, 4, 1}, {6, 7, 8, 5}}, rollRef(mat, 3, 1))
	require.Equal(t, mat, rollRef(mat, 4, 1))
	require.Equal(t, [][]int64{{4, 1, 2, 3}, {8, 5, 6, 7}}, rollRef(mat, -7, 1))
}

func testRoll(tc *testContext, t *testing.T) {

	degree := int(tc.scheme.Parameters().PolyDegree)
	rows, cols := 2, degree/2

	newMatrix := func() [][]int64 {
		m := make([][]int64, rows)
		for r := range m {
			m[r] = make([]int64, cols)
			for c := range m[r] {
				m[r][c] = int64((r*cols+c)%251 + 1)
			}
		}
		return m
	}

	encryptMatrix := func(t *testing.T, m [][]int64) *CipherText {
		ct, err := tc.scheme.Encrypt(tc.keys.Public, m)
		require.NoError(t, err)
		return ct
	}

	decryptMatrix := func(t *testing.T, ct *CipherText) [][]int64 {
		got, err := tc.scheme.Decrypt(tc.keys.Secret, ct)
		require.NoError(t, err)
		return got.([][]int64)
	}

	t.Run(name("Matrix/RoundTrip", tc), func(t *testing.T) {
		mat := newMatrix()
		ct := encryptMatrix(t, mat)
		require.Equal(t, encoding.Descriptor{Kind: encoding.KindBatched, Rows: rows, Cols: cols}, ct.Encoding())
		require.Empty(t, cmp.Diff(mat, decryptMatrix(t, ct)))
	})

	t.Run(name("Matrix/Elementwise", tc), func(t *testing.T) {
		a, b := newMatrix(), newMatrix()
		want := make([][]int64, rows)
		for r := range want {
			want[r] = make([]int64, cols)
			for c := range want[r] {
				want[r][c] = a[r][c] + b[r][c]
			}
		}

		sum, err := encryptMatrix(t, a).Add(encryptMatrix(t, b))
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(want, decryptMatrix(t, sum)))
	})

	t.Run(name("Roll/Rows", tc), func(t *testing.T) {
		mat := newMatrix()
		ct := encryptMatrix(t, mat)

		for _, shift := range []int{1, -1} {
			out, err := ct.Roll(tc.rtk, shift, 0)
			require.NoError(t, err)
			require.Empty(t, cmp.Diff(rollRef(mat, shift, 0), decryptMatrix(t, out)))
		}

		out, err := ct.Roll(tc.rtk, 0, 0)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(mat, decryptMatrix(t, out)))
	})

	t.Run(name("Roll/Columns", tc), func(t *testing.T) {
		mat := newMatrix()
		ct := encryptMatrix(t, mat)

		for _, shift := range []int{1, -1, 5, -7, cols - 1, cols, cols + 3} {
			out, err := ct.Roll(tc.rtk, shift, 1)
			require.NoError(t, err)
			require.Empty(t, cmp.Diff(rollRef(mat, shift, 1), decryptMatrix(t, out)), "shift=%d", shift)
			printNoise(t, tc, "roll", out)
		}
	})

	t.Run(name("Roll/2D", tc), func(t *testing.T) {
		mat := newMatrix()
		ct := encryptMatrix(t, mat)

		out, err := ct.Roll2D(tc.rtk, 1, -7)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(rollRef(rollRef(mat, 1, 0), -7, 1), decryptMatrix(t, out)))

		out, err = ct.Roll2D(tc.rtk, 0, 0)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(mat, decryptMatrix(t, out)))
	})

	t.Run(name("Roll/Validation", tc), func(t *testing.T) {
		ct := encryptMatrix(t, newMatrix())

		_, err := ct.Roll(tc.rtk, 2, 0)
		require.Error(t, err)
		_, err = ct.Roll(tc.rtk, 1, 2)
		require.Error(t, err)
		_, err = ct.Roll(nil, 1, 1)
		require.Error(t, err)

		scalar, err := tc.scheme.Encrypt(tc.keys.Public, int64(6))
		require.NoError(t, err)
		_, err = scalar.Roll(tc.rtk, 1, 1)
		require.Error(t, err)
	})

	// Rotation is defined on the engine's 2 x (N/2) slot layout only.
	t.Run(name("Roll/ShapeRestriction", tc), func(t *testing.T) {
		quarters := make([][]int64, 4)
		for r := range quarters {
			quarters[r] = make([]int64, degree/4)
		}
		ct, err := tc.scheme.Encrypt(tc.keys.Public, quarters)
		require.NoError(t, err)

		_, err = ct.Roll(tc.rtk, 1, 1)
		require.Error(t, err)
	})
}
