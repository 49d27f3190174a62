package ai

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbeddingService is a deterministic EmbeddingService for tests and
// offline development. The same text always produces the same unit vector,
// and similar-prefix texts do not correlate, which is enough to exercise
// distance ordering without a live provider.
type MockEmbeddingService struct {
	// EmbedFunc overrides Embed when set, e.g. to inject failures.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	dimensions int
}

// NewMockEmbeddingService creates a mock embedder with the given output
// dimensionality.
func NewMockEmbeddingService(dimensions int) *MockEmbeddingService {
	return &MockEmbeddingService{dimensions: dimensions}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return deterministicVector(text, m.dimensions), nil
}

func (m *MockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

// deterministicVector derives a unit vector from an FNV hash of the text.
func deterministicVector(text string, dimensions int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dimensions)
	var sumSquares float64
	for i := range vector {
		// LCG constants
		seed = seed*1664525 + 1013904223
		vector[i] = float32(seed%2000)/1000.0 - 1.0
		sumSquares += float64(vector[i]) * float64(vector[i])
	}

	if norm := math.Sqrt(sumSquares); norm > 0 {
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}
	return vector
}
