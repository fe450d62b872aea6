package regsearch

import (
	"math"
	"testing"
)

func TestEmbed(t *testing.T) {
	e := NewEmbedder()

	t.Run("FixedDimensions", func(t *testing.T) {
		vec := e.Embed("Personal data shall be processed lawfully")
		if len(vec) != EmbeddingDimensions {
			t.Errorf("Embedding length = %d, want %d", len(vec), EmbeddingDimensions)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		text := "Cardholder data must be rendered unreadable anywhere it is stored"
		a := e.Embed(text)
		b := e.Embed(text)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("Embeddings differ at index %d: %v vs %v", i, a[i], b[i])
			}
		}
	})

	t.Run("UnitNorm", func(t *testing.T) {
		vec := e.Embed("Protected health information requires safeguards")
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if math.Abs(math.Sqrt(sum)-1.0) > 1e-5 {
			t.Errorf("L2 norm = %f, want 1.0", math.Sqrt(sum))
		}
	})

	t.Run("EmptyTextIsZeroVector", func(t *testing.T) {
		for _, text := range []string{"", "   ", "a . !"} {
			vec := e.Embed(text)
			for i, v := range vec {
				if v != 0 {
					t.Fatalf("Embed(%q)[%d] = %f, want 0", text, i, v)
				}
			}
		}
	})

	t.Run("CaseAndPunctuationInsensitive", func(t *testing.T) {
		a := e.Embed("Encryption of personal data")
		b := e.Embed("encryption, of PERSONAL data.")
		if Cosine(a, b) < 0.999 {
			t.Errorf("Normalized variants diverged: cosine = %f", Cosine(a, b))
		}
	})
}

func TestCosine(t *testing.T) {
	e := NewEmbedder()

	t.Run("SelfSimilarity", func(t *testing.T) {
		vec := e.Embed("Access to patient records is restricted to treatment purposes")
		if sim := Cosine(vec, vec); math.Abs(float64(sim)-1.0) > 1e-5 {
			t.Errorf("Cosine(v, v) = %f, want 1.0", sim)
		}
	})

	t.Run("DistinctTextsBelowOne", func(t *testing.T) {
		a := e.Embed("Primary account numbers must be masked when displayed")
		b := e.Embed("Data subjects have the right to erasure without undue delay")
		if sim := Cosine(a, b); sim >= 0.999 {
			t.Errorf("Unrelated excerpts too similar: cosine = %f", sim)
		}
	})

	t.Run("MismatchedLengths", func(t *testing.T) {
		if sim := Cosine([]float32{1, 0}, []float32{1, 0, 0}); sim != 0 {
			t.Errorf("Cosine on mismatched lengths = %f, want 0", sim)
		}
	})
}
