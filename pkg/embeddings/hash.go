package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashProvider is an offline bag-of-words embedder: each lower-cased word is
// hashed into one of Dimensions buckets and the vector is L2 normalized.
// Texts sharing words get a positive cosine similarity.
type HashProvider struct {
	Dimensions int
}

var _ Provider = &HashProvider{}

func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &HashProvider{Dimensions: dimensions}
}

func (h *HashProvider) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, h.Dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		v[f.Sum32()%uint32(h.Dimensions)]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v, nil
}

func (h *HashProvider) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return DefaultGenerateBatchEmbeddings(ctx, h, texts)
}

func (h *HashProvider) GetModel() EmbeddingModel {
	return EmbeddingModel{Name: "hash", Dimensions: h.Dimensions}
}
