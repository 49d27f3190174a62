package store

import (
	"context"
	"time"
)

// SearchCandidate is one article proposed by a candidate generator. Both
// generators return the same shape: the tag-overlap path carries the
// article's complete tag-name set, the vector path carries the tag names only
// for articles that matched a requested tag (nil otherwise). Distance is the
// cosine distance between the article's embedding and the query vector.
type SearchCandidate struct {
	ArticleID     int64
	LinkHash      string
	Link          string
	Headline      string
	PublishedDate time.Time
	Summarization string
	Distance      float64
	TagNames      []string
	KeyInsights   []string
}

// SearchOptions are the shared inputs of the two candidate generators.
type SearchOptions struct {
	// TagNames are the normalized requested tag names.
	TagNames []string
	// Vector is the embedding of the requested tag names joined into one text.
	Vector []float32
	// Limit caps each generator's result set independently.
	Limit int
}

// SearchArticlesByTags runs the tag-overlap candidate generator: articles
// associated with at least one requested tag, annotated with their complete
// tag set, ordered by descending distinct-tag count then ascending article id.
func (s *Store) SearchArticlesByTags(ctx context.Context, opts *SearchOptions) ([]*SearchCandidate, error) {
	return s.driver.SearchArticlesByTags(ctx, opts)
}

// NearestArticlesByEmbedding runs the vector candidate generator: the Limit
// nearest articles by cosine distance to the query vector, ascending.
func (s *Store) NearestArticlesByEmbedding(ctx context.Context, opts *SearchOptions) ([]*SearchCandidate, error) {
	return s.driver.NearestArticlesByEmbedding(ctx, opts)
}
