package regsearch

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// EmbeddingDimensions is the fixed width of excerpt embeddings.
const EmbeddingDimensions = 384

// Embedder produces deterministic hash-based embeddings. The same text
// always yields the same vector, so index and query sides agree without
// a model runtime. Token hashes are accumulated into a bag-of-words
// projection with positional decay, then L2-normalized.
type Embedder struct{}

// NewEmbedder creates an embedder.
func NewEmbedder() *Embedder { return &Embedder{} }

// Embed generates the embedding for text.
func (e *Embedder) Embed(text string) []float32 {
	vec := make([]float32, EmbeddingDimensions)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for i, token := range tokens {
		sum := sha256.Sum256([]byte(token))
		// Positional decay: early tokens weigh slightly more, so two
		// excerpts sharing an opening clause land closer together.
		weight := float32(1.0 / (1.0 + 0.01*float64(i)))
		for j := 0; j+4 <= len(sum); j += 4 {
			idx := binary.BigEndian.Uint32(sum[j:j+4]) % EmbeddingDimensions
			sign := float32(1)
			if sum[j]&1 == 1 {
				sign = -1
			}
			vec[idx] += sign * weight
		}
	}

	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'")
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// Cosine returns the cosine similarity of two normalized vectors.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
