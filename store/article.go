package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Article is a stored news article. External identity is the link hash, a
// fixed-length content hash of the canonical URL; it never changes once
// assigned.
type Article struct {
	ID            int64
	LinkHash      string
	Link          string
	Headline      string
	PublishedDate time.Time
	CreatedTs     int64
	UpdatedTs     int64
}

// ArticleDetail is an article with its derived artifacts eagerly loaded.
// Tag names are sorted; no lazy views leak to callers.
type ArticleDetail struct {
	Article

	Summarization string
	TagNames      []string
	KeyInsights   []string
}

// CreateArticleBundle is the input to the atomic article create. The article,
// its embedding, tag associations and key insights are written in a single
// transaction; the unit either fully commits or fully rolls back.
type CreateArticleBundle struct {
	LinkHash      string
	Link          string
	Headline      string
	PublishedDate time.Time
	Summarization string
	TagNames      []string
	KeyInsights   []string

	// Vector is the embedding of Summarization. The store fills it in via the
	// embedder before handing the bundle to the driver, so the driver never
	// sees a summarization without a matching vector.
	Vector []float32
}

// Tag is a shared label. Tag rows are independent of any single article and
// are never deleted when an article goes away.
type Tag struct {
	ID        int64
	Name      string
	CreatedTs int64
}

// FindTag is the find condition for tags.
type FindTag struct {
	Name  *string
	Names []string
}

// HashLink derives the canonical link hash of an article URL. The hash is the
// article's external identity, so the derivation can never change without a
// data migration.
func HashLink(link string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(link)))
	return hex.EncodeToString(sum[:])
}

// NormalizeTag canonicalizes a tag name before lookup-or-create so that no
// two tag rows ever represent the same name.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags canonicalizes and deduplicates a list of tag names,
// preserving first-seen order and dropping empties.
func NormalizeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	normalized := make([]string, 0, len(names))
	for _, name := range names {
		tag := NormalizeTag(name)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
	}
	return normalized
}

// ArticleExists reports whether an article with the given link hash exists.
func (s *Store) ArticleExists(ctx context.Context, linkHash string) (bool, error) {
	return s.driver.ArticleExists(ctx, linkHash)
}

// CreateArticleBundle validates the bundle, computes the embedding of its
// summarization, and writes the article with all derived artifacts in one
// transaction. A duplicate link hash at commit time yields ErrArticleExists.
func (s *Store) CreateArticleBundle(ctx context.Context, create *CreateArticleBundle) (*Article, error) {
	if err := validateBundle(create); err != nil {
		return nil, err
	}
	create.TagNames = NormalizeTags(create.TagNames)
	create.KeyInsights = dedupeInsights(create.KeyInsights)

	// The embedding is computed before anything is written. The vector must
	// always be the embedding of the current summarization text, so the embed
	// call is part of the create, never a background job.
	vector, err := s.embedder.Embed(ctx, create.Summarization)
	if err != nil {
		return nil, &UpstreamError{Service: "embedding service", Err: err}
	}
	if len(vector) != s.dimensions {
		return nil, &UpstreamError{
			Service: "embedding service",
			Err:     errDimensionMismatch(s.dimensions, len(vector)),
		}
	}
	create.Vector = vector

	return s.driver.CreateArticleBundle(ctx, create)
}

// GetArticleByLinkHash returns the article with its summarization, tag names
// and key insights. Returns ErrNotFound when no article matches.
func (s *Store) GetArticleByLinkHash(ctx context.Context, linkHash string) (*ArticleDetail, error) {
	return s.driver.GetArticleByLinkHash(ctx, linkHash)
}

// ListTags lists tags matching the find condition.
func (s *Store) ListTags(ctx context.Context, find *FindTag) ([]*Tag, error) {
	return s.driver.ListTags(ctx, find)
}

func validateBundle(create *CreateArticleBundle) error {
	if strings.TrimSpace(create.LinkHash) == "" {
		return invalidField("link_hash", "cannot be empty")
	}
	if strings.TrimSpace(create.Link) == "" {
		return invalidField("link", "cannot be empty")
	}
	if strings.TrimSpace(create.Headline) == "" {
		return invalidField("headline", "cannot be empty")
	}
	if create.PublishedDate.IsZero() {
		return invalidField("published_date", "cannot be zero")
	}
	if strings.TrimSpace(create.Summarization) == "" {
		return invalidField("summarization", "cannot be empty")
	}
	return nil
}

// dedupeInsights drops duplicate and empty insight texts. The same literal
// insight cannot be attached twice to one article.
func dedupeInsights(insights []string) []string {
	seen := make(map[string]bool, len(insights))
	deduped := make([]string, 0, len(insights))
	for _, insight := range insights {
		text := strings.TrimSpace(insight)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		deduped = append(deduped, text)
	}
	return deduped
}
