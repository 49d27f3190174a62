package store

import (
	"context"
	"fmt"

	"github.com/newstrove/newstrove/internal/profile"
)

// Embedder computes a fixed-dimension vector for a text. The production
// implementation calls an external embedding service; tests substitute a
// seeded deterministic one of the same dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store provides database access to all raw objects and owns the
// embedding-on-write invariant.
type Store struct {
	profile    *profile.Profile
	driver     Driver
	embedder   Embedder
	dimensions int
}

// New creates a new Store. The driver handle and embedder are injected; the
// store does not open connections lazily.
func New(driver Driver, embedder Embedder, profile *profile.Profile) *Store {
	return &Store{
		profile:    profile,
		driver:     driver,
		embedder:   embedder,
		dimensions: profile.EmbeddingDimensions,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func errDimensionMismatch(want, got int) error {
	return fmt.Errorf("expected %d-dimensional vector, got %d", want, got)
}
