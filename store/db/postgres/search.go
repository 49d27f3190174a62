package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/newstrove/newstrove/store"
)

// matchedTagsetCTE collects, for every article associated with at least one
// requested tag, that article's complete tag-name set. The ranker works with
// total tag cardinality, not query-match count, so the aggregation is not
// restricted to the requested names.
const matchedTagsetCTE = `
	matched_tagset AS (
		SELECT
			at.article_id AS article_id,
			ARRAY_AGG(DISTINCT t.name) AS tag_names
		FROM article_tag at
		JOIN tag t ON t.id = at.tag_id
		WHERE at.article_id IN (
			SELECT at2.article_id
			FROM article_tag at2
			JOIN tag t2 ON t2.id = at2.tag_id
			WHERE t2.name = ANY($1)
		)
		GROUP BY at.article_id
	)
`

// SearchArticlesByTags returns up to Limit articles sharing at least one
// requested tag, ordered by descending distinct-tag count. Ties break on
// ascending article id so the order is deterministic.
func (d *DB) SearchArticlesByTags(ctx context.Context, opts *store.SearchOptions) ([]*store.SearchCandidate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		WITH ` + matchedTagsetCTE + `
		SELECT
			a.id, a.link_hash, a.link, a.headline, a.published_date,
			e.summarization,
			e.vector <=> $2 AS distance,
			m.tag_names,
			COALESCE((
				SELECT ARRAY_AGG(k.insight ORDER BY k.id)
				FROM key_insight k
				WHERE k.article_id = a.id
			), '{}') AS key_insights
		FROM matched_tagset m
		JOIN article a ON a.id = m.article_id
		JOIN embedding e ON e.article_id = a.id
		ORDER BY CARDINALITY(m.tag_names) DESC, a.id ASC
		LIMIT $3
	`

	rows, err := d.db.QueryContext(ctx, query, pq.Array(opts.TagNames), pgvector.NewVector(opts.Vector), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search articles by tags")
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// NearestArticlesByEmbedding returns the Limit nearest articles by cosine
// distance to the query vector. Tag names are attached only for articles that
// matched a requested tag; everything else carries a nil tag set.
func (d *DB) NearestArticlesByEmbedding(ctx context.Context, opts *store.SearchOptions) ([]*store.SearchCandidate, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		WITH ` + matchedTagsetCTE + `
		SELECT
			a.id, a.link_hash, a.link, a.headline, a.published_date,
			e.summarization,
			e.vector <=> $2 AS distance,
			m.tag_names,
			COALESCE((
				SELECT ARRAY_AGG(k.insight ORDER BY k.id)
				FROM key_insight k
				WHERE k.article_id = a.id
			), '{}') AS key_insights
		FROM embedding e
		JOIN article a ON a.id = e.article_id
		LEFT JOIN matched_tagset m ON m.article_id = a.id
		ORDER BY e.vector <=> $2 ASC, a.id ASC
		LIMIT $3
	`

	rows, err := d.db.QueryContext(ctx, query, pq.Array(opts.TagNames), pgvector.NewVector(opts.Vector), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search nearest articles")
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func scanCandidates(rows *sql.Rows) ([]*store.SearchCandidate, error) {
	list := []*store.SearchCandidate{}
	for rows.Next() {
		var candidate store.SearchCandidate
		var tagNames, keyInsights pq.StringArray
		err := rows.Scan(
			&candidate.ArticleID,
			&candidate.LinkHash,
			&candidate.Link,
			&candidate.Headline,
			&candidate.PublishedDate,
			&candidate.Summarization,
			&candidate.Distance,
			&tagNames,
			&keyInsights,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan search candidate")
		}
		candidate.TagNames = tagNames
		candidate.KeyInsights = keyInsights
		list = append(list, &candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
