package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/newstrove/newstrove/store"
)

func (d *DB) ArticleExists(ctx context.Context, linkHash string) (bool, error) {
	var exists bool
	stmt := `SELECT EXISTS (SELECT 1 FROM article WHERE link_hash = $1)`
	if err := d.db.QueryRowContext(ctx, stmt, linkHash).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check article existence")
	}
	return exists, nil
}

// CreateArticleBundle writes the article, its embedding, tag associations and
// key insights in one transaction. The bundle's vector has already been
// computed by the store.
func (d *DB) CreateArticleBundle(ctx context.Context, create *store.CreateArticleBundle) (*store.Article, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	article := &store.Article{
		LinkHash:      create.LinkHash,
		Link:          create.Link,
		Headline:      create.Headline,
		PublishedDate: create.PublishedDate,
	}
	stmt := `
		INSERT INTO article (link_hash, link, headline, published_date)
		VALUES (` + placeholders(4) + `)
		RETURNING id, created_ts, updated_ts
	`
	err = tx.QueryRowContext(ctx, stmt,
		create.LinkHash,
		create.Link,
		create.Headline,
		create.PublishedDate,
	).Scan(&article.ID, &article.CreatedTs, &article.UpdatedTs)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrArticleExists
		}
		return nil, errors.Wrap(err, "failed to insert article")
	}

	stmt = `
		INSERT INTO embedding (article_id, summarization, vector)
		VALUES (` + placeholders(3) + `)
	`
	if _, err := tx.ExecContext(ctx, stmt, article.ID, create.Summarization, pgvector.NewVector(create.Vector)); err != nil {
		return nil, errors.Wrap(err, "failed to insert embedding")
	}

	for _, name := range create.TagNames {
		// Lookup-or-create. The no-op DO UPDATE makes RETURNING yield the id
		// of a pre-existing row as well.
		var tagID int64
		stmt = `
			INSERT INTO tag (name)
			VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, stmt, name).Scan(&tagID); err != nil {
			return nil, errors.Wrapf(err, "failed to upsert tag %q", name)
		}
		stmt = `
			INSERT INTO article_tag (article_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, stmt, article.ID, tagID); err != nil {
			return nil, errors.Wrapf(err, "failed to associate tag %q", name)
		}
	}

	for _, insight := range create.KeyInsights {
		stmt = `
			INSERT INTO key_insight (article_id, insight)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, stmt, article.ID, insight); err != nil {
			return nil, errors.Wrap(err, "failed to insert key insight")
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrArticleExists
		}
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return article, nil
}

// GetArticleByLinkHash returns the article with summarization, sorted tag
// names and key insights eagerly loaded.
func (d *DB) GetArticleByLinkHash(ctx context.Context, linkHash string) (*store.ArticleDetail, error) {
	stmt := `
		SELECT
			a.id, a.link_hash, a.link, a.headline, a.published_date, a.created_ts, a.updated_ts,
			e.summarization,
			COALESCE((
				SELECT ARRAY_AGG(t.name ORDER BY t.name)
				FROM article_tag at
				JOIN tag t ON t.id = at.tag_id
				WHERE at.article_id = a.id
			), '{}'),
			COALESCE((
				SELECT ARRAY_AGG(k.insight ORDER BY k.id)
				FROM key_insight k
				WHERE k.article_id = a.id
			), '{}')
		FROM article a
		JOIN embedding e ON e.article_id = a.id
		WHERE a.link_hash = $1
	`

	detail := &store.ArticleDetail{}
	var tagNames, keyInsights pq.StringArray
	err := d.db.QueryRowContext(ctx, stmt, linkHash).Scan(
		&detail.ID,
		&detail.LinkHash,
		&detail.Link,
		&detail.Headline,
		&detail.PublishedDate,
		&detail.CreatedTs,
		&detail.UpdatedTs,
		&detail.Summarization,
		&tagNames,
		&keyInsights,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get article")
	}
	detail.TagNames = tagNames
	detail.KeyInsights = keyInsights
	return detail, nil
}

func (d *DB) ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Name != nil {
		where, args = append(where, "name = "+placeholder(len(args)+1)), append(args, *find.Name)
	}
	if len(find.Names) > 0 {
		where, args = append(where, "name = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(find.Names))
	}

	query := `
		SELECT id, name, created_ts
		FROM tag
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name ASC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	defer rows.Close()

	list := []*store.Tag{}
	for rows.Next() {
		var tag store.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag")
		}
		list = append(list, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
