package vector

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnitNorm(t *testing.T) {
	f := func(v []float32) bool {
		nonzero := false
		for i, x := range v {
			// keep inputs in a sane range so the squared sum stays finite
			v[i] = float32(math.Mod(float64(x), 1e6))
			if math.IsNaN(float64(v[i])) {
				v[i] = 0
			}
			if v[i] != 0 {
				nonzero = true
			}
		}
		n, err := Normalize(v)
		if !nonzero {
			return err != nil
		}
		if err != nil {
			t.Logf("normalize %v: %v", v, err)
			return false
		}
		return math.Abs(Dot(n, n)-1) < 1e-5
	}

	require.NoError(t, quick.Check(f, &quick.Config{MaxCount: 200}))
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float32{3, 4}
	out, err := Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, []float32{3, 4}, in)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)
}

func TestNormalizeZeroVector(t *testing.T) {
	_, err := Normalize([]float32{0, 0, 0})
	assert.ErrorIs(t, err, ErrZeroVector)

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, ErrZeroVector)
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 32.0, Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-9)
	assert.InDelta(t, 0.0, Dot([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{"empty", []float32{}},
		{"single", []float32{3.14}},
		{"mixed signs", []float32{-1.5, 0, 2.5, float32(math.Inf(1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := Encode(tt.vec)
			assert.Len(t, blob, len(tt.vec)*4)

			got, err := Decode(blob)
			require.NoError(t, err)
			assert.Equal(t, tt.vec, got)
		})
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	// 1.0f is 0x3f800000
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, Encode([]float32{1}))
}

func TestDecodeInvalidLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}
