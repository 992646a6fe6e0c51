package sealed

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewParameterSet(t *testing.T) {

	p, err := NewParameterSet(4096, 0, 65537, 128)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), p.PolyDegree)
	require.Empty(t, p.CoeffModulus)
	require.Equal(t, 12, p.LogDegree())

	p, err = NewParameterSet(4096, 0x7fffffffba0001, 65537, 128)
	require.NoError(t, err)
	require.Equal(t, []uint64{0x7fffffffba0001}, p.CoeffModulus)

	for _, c := range []struct {
		degree, coeffMod, plainMod uint64
		security                   int
	}{
		{1000, 0, 65537, 128},    // not a power of two
		{512, 0, 65537, 128},     // below the minimum degree
		{1 << 17, 0, 65537, 128}, // above the maximum degree
		{4096, 0, 65537, 100},    // unsupported security level
		{4096, 0, 0, 128},        // zero plain modulus
	} {
		_, err := NewParameterSet(c.degree, c.coeffMod, c.plainMod, c.security)
		require.Error(t, err, "degree=%d plainMod=%d security=%d", c.degree, c.plainMod, c.security)
	}
}

func TestParameterSetEqual(t *testing.T) {

	a, err := NewParameterSet(4096, 0, 65537, 128)
	require.NoError(t, err)
	b, err := NewParameterSet(4096, 0, 65537, 128)
	require.NoError(t, err)
	require.True(t, a.Equal(b))

	c, err := NewParameterSet(4096, 0, 40961, 128)
	require.NoError(t, err)
	require.False(t, a.Equal(c))

	d, err := NewParameterSet(4096, 0, 65537, 192)
	require.NoError(t, err)
	require.False(t, a.Equal(d))

	e, err := NewParameterSet(4096, 0x7fffffffba0001, 65537, 128)
	require.NoError(t, err)
	require.False(t, a.Equal(e))
}

func TestBatchingCompatible(t *testing.T) {

	for _, c := range []struct {
		degree, plainMod uint64
		want             bool
	}{
		{4096, 65537, true},  // prime, 65536 = 8 * 8192
		{4096, 40961, true},  // prime, 40960 = 5 * 8192
		{4096, 12289, false}, // prime but 12288 is not a multiple of 8192
		{4096, 65536, false}, // not prime
		{4096, 256, false},
	} {
		p, err := NewParameterSet(c.degree, 0, c.plainMod, 128)
		require.NoError(t, err)
		require.Equal(t, c.want, p.BatchingCompatible(), "T=%d", c.plainMod)
	}
}

func TestSplitLogQ(t *testing.T) {

	for _, c := range []struct {
		total int
		want  []int
	}{
		{27, []int{27}},
		{60, []int{60}},
		{109, []int{55, 54}},
		{218, []int{55, 55, 54, 54}},
	} {
		require.Equal(t, c.want, splitLogQ(c.total))
	}

	// Every split sums back to the total with limbs within the engine bound.
	for total := 1; total <= 881; total++ {
		var sum int
		for _, size := range splitLogQ(total) {
			require.LessOrEqual(t, size, maxModuliSize)
			require.Positive(t, size)
			sum += size
		}
		require.Equal(t, total, sum)
	}
}

func TestNewCipherSchemeRejectsIllegalParameters(t *testing.T) {

	// The engine only accepts plaintext moduli that are NTT-friendly primes;
	// power-of-two moduli fail at context construction.
	for _, plainMod := range []uint64{256, 1024} {
		_, err := NewCipherScheme(4096, 0, plainMod, 128)
		require.ErrorContains(t, err, "illegal parameters")
	}

	_, err := NewCipherScheme(1000, 0, 65537, 128)
	require.Error(t, err)
}

func TestSchemeEqual(t *testing.T) {

	a, err := NewCipherScheme(4096, 0, 65537, 128)
	require.NoError(t, err)
	b, err := NewCipherScheme(4096, 0, 65537, 128)
	require.NoError(t, err)
	c, err := NewCipherScheme(4096, 0, 40961, 128)
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))
}
