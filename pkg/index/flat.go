package index

import (
	"fmt"
	"slices"

	"github.com/pario-ai/semcache/pkg/vector"
)

// Match is one search hit: the position of the stored vector and its score.
type Match struct {
	Position int
	Score    float32
}

// Flat is an exhaustive inner-product index. Positions are assigned in append
// order starting at 0 and are never reused or reordered; entries can only be
// dropped all at once with Reset.
//
// Flat is not safe for concurrent mutation. Concurrent Search calls are safe
// as long as no Add or Reset runs at the same time.
type Flat struct {
	dim  int
	data []float32
	n    int
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) *Flat {
	return &Flat{dim: dim}
}

// Dim returns the vector dimension accepted by the index.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *Flat) Len() int { return f.n }

// Add appends vec and returns its position.
func (f *Flat) Add(vec []float32) (int, error) {
	if len(vec) != f.dim {
		return 0, fmt.Errorf("index: vector dim %d != index dim %d", len(vec), f.dim)
	}
	f.data = append(f.data, vec...)
	pos := f.n
	f.n++
	return pos, nil
}

// Search returns up to k matches ordered by descending score. Equal scores are
// ordered by ascending position, so the earliest inserted vector wins. A k of
// zero or less means all entries.
func (f *Flat) Search(query []float32, k int) ([]Match, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("index: query dim %d != index dim %d", len(query), f.dim)
	}
	if f.n == 0 {
		return nil, nil
	}
	if k <= 0 || k > f.n {
		k = f.n
	}

	if k == 1 {
		best := Match{Position: 0, Score: f.score(query, 0)}
		for i := 1; i < f.n; i++ {
			if s := f.score(query, i); s > best.Score {
				best = Match{Position: i, Score: s}
			}
		}
		return []Match{best}, nil
	}

	matches := make([]Match, f.n)
	for i := range matches {
		matches[i] = Match{Position: i, Score: f.score(query, i)}
	}
	slices.SortFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return a.Position - b.Position
	})
	return matches[:k], nil
}

// Reset drops every entry.
func (f *Flat) Reset() {
	f.data = nil
	f.n = 0
}

func (f *Flat) score(query []float32, pos int) float32 {
	s := vector.Dot(query, f.data[pos*f.dim:(pos+1)*f.dim])
	// rounding on unit vectors can overshoot [-1, 1] by an ulp or two
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return float32(s)
}
