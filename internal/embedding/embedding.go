// Package embedding provides the embedding-producer contract: text in, a
// deterministic, L2-normalized fixed-dimension vector out. Embedder is a
// capability interface — the engine never constructs one itself, it only
// consumes what the framing layer hands it.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Embedder converts text into a dense float32 vector.
type Embedder interface {
	// Embed returns the embedding for text. Deterministic: equal input
	// yields bit-equal output. The empty string yields the all-zero
	// vector. Non-empty input yields a vector with L2 norm ~1.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of vectors this Embedder produces.
	Dimension() int
}

// Hash is a deterministic mock Embedder with no external dependencies: a
// correctness harness for tests and local development, not a production
// embedding model. It derives each coordinate from a SHA-256 digest of the
// input text and the coordinate index, then L2-normalizes the result.
type Hash struct {
	dim int
}

var _ Embedder = (*Hash)(nil)

// NewHash creates a deterministic hash-based Embedder of the given dimension.
func NewHash(dim int) *Hash {
	return &Hash{dim: dim}
}

func (h *Hash) Dimension() int { return h.dim }

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	if text == "" {
		return vec, nil
	}

	buf := make([]byte, len(text)+4)
	copy(buf, text)
	for i := range vec {
		binary.BigEndian.PutUint32(buf[len(text):], uint32(i))
		sum := sha256.Sum256(buf)
		// Map the first 4 bytes of the digest to a float64 in [-1, 1].
		u := binary.BigEndian.Uint32(sum[:4])
		vec[i] = float32(float64(u)/float64(math.MaxUint32)*2 - 1)
	}

	var normSq float64
	for _, v := range vec {
		normSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(normSq)
	if norm == 0 {
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}
