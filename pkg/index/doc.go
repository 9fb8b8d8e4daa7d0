// Package index provides the in-memory vector index used by the semantic
// cache. Vectors are expected to be unit-normalized, so inner product equals
// cosine similarity.
package index
