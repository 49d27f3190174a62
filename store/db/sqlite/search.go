package sqlite

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/newstrove/newstrove/store"
)

// The SQLite candidate generators mirror the PostgreSQL semantics without a
// vector index: embeddings are loaded and scored in-process. Acceptable for
// the article volumes of development and tests.

// SearchArticlesByTags returns up to Limit articles sharing at least one
// requested tag, ordered by descending distinct-tag count then ascending
// article id.
func (d *DB) SearchArticlesByTags(ctx context.Context, opts *store.SearchOptions) ([]*store.SearchCandidate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	tagsets, err := d.loadMatchedTagsets(ctx, opts.TagNames)
	if err != nil {
		return nil, err
	}
	if len(tagsets) == 0 {
		return []*store.SearchCandidate{}, nil
	}

	articleIDs := make([]int64, 0, len(tagsets))
	for articleID := range tagsets {
		articleIDs = append(articleIDs, articleID)
	}
	candidates, err := d.loadCandidates(ctx, articleIDs, opts.Vector)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		candidate.TagNames = tagsets[candidate.ArticleID]
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].TagNames) != len(candidates[j].TagNames) {
			return len(candidates[i].TagNames) > len(candidates[j].TagNames)
		}
		return candidates[i].ArticleID < candidates[j].ArticleID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// NearestArticlesByEmbedding returns the Limit nearest articles by cosine
// distance to the query vector, ascending.
func (d *DB) NearestArticlesByEmbedding(ctx context.Context, opts *store.SearchOptions) ([]*store.SearchCandidate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	candidates, err := d.loadCandidates(ctx, nil, opts.Vector)
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].ArticleID < candidates[j].ArticleID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	tagsets, err := d.loadMatchedTagsets(ctx, opts.TagNames)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		candidate.TagNames = tagsets[candidate.ArticleID]
	}
	return candidates, nil
}

// loadMatchedTagsets returns the complete tag-name set of every article
// associated with at least one requested tag.
func (d *DB) loadMatchedTagsets(ctx context.Context, tagNames []string) (map[int64][]string, error) {
	tagsets := map[int64][]string{}
	if len(tagNames) == 0 {
		return tagsets, nil
	}

	query := `
		SELECT at.article_id, t.name
		FROM article_tag at
		JOIN tag t ON t.id = at.tag_id
		WHERE at.article_id IN (
			SELECT at2.article_id
			FROM article_tag at2
			JOIN tag t2 ON t2.id = at2.tag_id
			WHERE t2.name IN (` + placeholders(len(tagNames)) + `)
		)
		ORDER BY at.article_id ASC, t.name ASC
	`
	args := make([]any, 0, len(tagNames))
	for _, name := range tagNames {
		args = append(args, name)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load matched tag sets")
	}
	defer rows.Close()

	for rows.Next() {
		var articleID int64
		var name string
		if err := rows.Scan(&articleID, &name); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag set row")
		}
		tagsets[articleID] = append(tagsets[articleID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tagsets, nil
}

// loadCandidates loads article+embedding rows, restricted to articleIDs when
// non-empty, with cosine distances to the query vector computed in-process.
func (d *DB) loadCandidates(ctx context.Context, articleIDs []int64, queryVector []float32) ([]*store.SearchCandidate, error) {
	query := `
		SELECT
			a.id, a.link_hash, a.link, a.headline, a.published_date,
			e.summarization, e.vector
		FROM article a
		JOIN embedding e ON e.article_id = a.id
	`
	args := []any{}
	if len(articleIDs) > 0 {
		query += ` WHERE a.id IN (` + placeholders(len(articleIDs)) + `)`
		for _, id := range articleIDs {
			args = append(args, id)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load candidates")
	}
	defer rows.Close()

	candidates := []*store.SearchCandidate{}
	for rows.Next() {
		var candidate store.SearchCandidate
		var publishedDate, rawVector string
		err := rows.Scan(
			&candidate.ArticleID,
			&candidate.LinkHash,
			&candidate.Link,
			&candidate.Headline,
			&publishedDate,
			&candidate.Summarization,
			&rawVector,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan candidate")
		}
		if candidate.PublishedDate, err = time.Parse(dateLayout, publishedDate); err != nil {
			return nil, errors.Wrap(err, "failed to parse published date")
		}
		var vector []float32
		if err := json.Unmarshal([]byte(rawVector), &vector); err != nil {
			return nil, errors.Wrap(err, "failed to decode vector")
		}
		candidate.Distance = cosineDistance(queryVector, vector)
		candidates = append(candidates, &candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, candidate := range candidates {
		insights, err := d.loadInsights(ctx, candidate.ArticleID)
		if err != nil {
			return nil, err
		}
		candidate.KeyInsights = insights
	}
	return candidates, nil
}

func (d *DB) loadInsights(ctx context.Context, articleID int64) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT insight
		FROM key_insight
		WHERE article_id = ?
		ORDER BY id ASC
	`, articleID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list key insights")
	}
	defer rows.Close()

	insights := []string{}
	for rows.Next() {
		var insight string
		if err := rows.Scan(&insight); err != nil {
			return nil, errors.Wrap(err, "failed to scan key insight")
		}
		insights = append(insights, insight)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return insights, nil
}

// cosineDistance returns 1 - cosine similarity, matching pgvector's <=>
// operator. A zero-magnitude vector yields the maximum distance.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
