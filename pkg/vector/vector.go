// Package vector holds the small amount of linear algebra the semantic cache
// needs: L2 normalization, inner products, and the little-endian float32
// encoding used to persist embeddings.
package vector

import (
	"errors"
	"math"

	"github.com/viant/vec/search"
)

// ErrZeroVector is returned when a vector cannot be normalized because its
// magnitude is zero (or not finite).
var ErrZeroVector = errors.New("vector: zero or non-finite magnitude")

// Normalize returns v / ||v|| as a new slice. The input is not modified.
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, ErrZeroVector
	}
	mag := float64(search.Float32s(v).Magnitude())
	if mag == 0 || math.IsNaN(mag) || math.IsInf(mag, 0) {
		return nil, ErrZeroVector
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out, nil
}

// Dot returns the inner product of a and b, accumulated in float64.
// The vectors must have the same length.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
