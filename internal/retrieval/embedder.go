package retrieval

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a fixed-dimension vector. Implementations must
// be deterministic: identical text yields identical vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dim() int
}

const defaultEmbeddingDim = 256

// HashEmbedder is the built-in embedder: a bag-of-words feature hasher
// with L2 normalization. It needs no model files and is fully
// deterministic, which keeps retrieval reproducible across restarts.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultEmbeddingDim
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Dim() int {
	return e.dim
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dim))
		// The next hash bit decides the sign, which spreads collisions.
		sign := 1.0
		if (sum>>31)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}
	normalize(vec)
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// cosine assumes both vectors are already L2-normalized.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
