package store

import (
	"context"
	"database/sql"
)

// Driver is the interface a store database driver implements. PostgreSQL is
// the production backend; SQLite serves development and tests.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Article model related methods.
	ArticleExists(ctx context.Context, linkHash string) (bool, error)
	CreateArticleBundle(ctx context.Context, create *CreateArticleBundle) (*Article, error)
	GetArticleByLinkHash(ctx context.Context, linkHash string) (*ArticleDetail, error)

	// Tag model related methods.
	ListTags(ctx context.Context, find *FindTag) ([]*Tag, error)

	// Candidate generators. The two run independently over the full article
	// population; an article may appear in both result sets.
	SearchArticlesByTags(ctx context.Context, opts *SearchOptions) ([]*SearchCandidate, error)
	NearestArticlesByEmbedding(ctx context.Context, opts *SearchOptions) ([]*SearchCandidate, error)
}
