package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultHashDimensions = 384

// Hash is an offline provider that embeds text by feature hashing its
// lowercased word tokens. Texts sharing words land close together, identical
// texts map to identical vectors, and nothing leaves the process. It is the
// default provider and the one used in tests.
type Hash struct {
	dimensions int
}

// NewHash creates a hashing provider producing vectors of the given length.
func NewHash(dimensions int) *Hash {
	if dimensions <= 0 {
		dimensions = defaultHashDimensions
	}
	return &Hash{dimensions: dimensions}
}

// Embed implements Provider. Text with no word characters is hashed whole
// after trimming, so every input, the empty string included, embeds to a
// nonzero vector.
func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dimensions)
	hasher := fnv.New64a()

	tokens := tokenize(text)
	if len(tokens) == 0 {
		tokens = []string{strings.TrimSpace(text)}
	}
	for _, tok := range tokens {
		hasher.Reset()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum64()

		bucket := int(sum % uint64(h.dimensions))
		// an independent bit picks the sign so collisions tend to cancel
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	return vec, nil
}

// Dimensions implements Provider.
func (h *Hash) Dimensions() int {
	return h.dimensions
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
