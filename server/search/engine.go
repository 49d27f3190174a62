package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/newstrove/newstrove/store"
)

const (
	// DefaultLimit caps each candidate generator when the caller passes no
	// limit of its own.
	DefaultLimit = 10

	// queryTagSeparator joins the requested tag names into the single text
	// whose embedding drives the vector generator.
	queryTagSeparator = "\n "
)

// Engine runs hybrid article search: a tag-overlap generator and an
// embedding-similarity generator fan out against the store, and their
// candidate sets are merged into one ranked list.
type Engine struct {
	store    *store.Store
	embedder store.Embedder
	logger   *slog.Logger
}

// NewEngine creates a search engine on top of the given store. The embedder
// computes query vectors and should be the same service the store embeds
// articles with, so query and article vectors live in one space.
func NewEngine(st *store.Store, embedder store.Embedder) *Engine {
	return &Engine{
		store:    st,
		embedder: embedder,
		logger:   slog.Default().With("component", "search"),
	}
}

// SearchByTags resolves the requested tag names into a ranked article list.
// Tag names are normalized and deduplicated first; at least one non-empty tag
// is required. Both generators run concurrently and the search fails as a
// whole if either of them fails.
func (e *Engine) SearchByTags(ctx context.Context, tagNames []string, limit int) ([]*RankedArticle, error) {
	tags := store.NormalizeTags(tagNames)
	if len(tags) == 0 {
		return nil, &store.ValidationError{Field: "tags", Reason: "at least one non-empty tag is required"}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	requestID := shortuuid.New()
	start := time.Now()

	queryVector, err := e.embedder.Embed(ctx, strings.Join(tags, queryTagSeparator))
	if err != nil {
		return nil, &store.UpstreamError{Service: "embedding service", Err: err}
	}

	opts := &store.SearchOptions{
		TagNames: tags,
		Vector:   queryVector,
		Limit:    limit,
	}

	var tagResults, embeddingResults []*store.SearchCandidate
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		if tagResults, err = e.store.SearchArticlesByTags(groupCtx, opts); err != nil {
			return errors.Wrap(err, "tag candidate generator failed")
		}
		return nil
	})
	group.Go(func() error {
		var err error
		if embeddingResults, err = e.store.NearestArticlesByEmbedding(groupCtx, opts); err != nil {
			return errors.Wrap(err, "embedding candidate generator failed")
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	ranked := MergeRank(tagResults, embeddingResults)
	e.logger.InfoContext(ctx, "search completed",
		"request_id", requestID,
		"tags", tags,
		"tag_candidates", len(tagResults),
		"embedding_candidates", len(embeddingResults),
		"results", len(ranked),
		"duration", time.Since(start).String(),
	)
	return ranked, nil
}
