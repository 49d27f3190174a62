package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/newstrove/newstrove/store"
)

const dateLayout = "2006-01-02"

func (d *DB) ArticleExists(ctx context.Context, linkHash string) (bool, error) {
	var exists bool
	stmt := `SELECT EXISTS (SELECT 1 FROM article WHERE link_hash = ?)`
	if err := d.db.QueryRowContext(ctx, stmt, linkHash).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "failed to check article existence")
	}
	return exists, nil
}

// CreateArticleBundle writes the article, its embedding, tag associations and
// key insights in one transaction.
func (d *DB) CreateArticleBundle(ctx context.Context, create *store.CreateArticleBundle) (*store.Article, error) {
	vector, err := json.Marshal(create.Vector)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode vector")
	}

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
		create.PublishedDate.Format(dateLayout),
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
	if _, err := tx.ExecContext(ctx, stmt, article.ID, create.Summarization, string(vector)); err != nil {
		return nil, errors.Wrap(err, "failed to insert embedding")
	}

	for _, name := range create.TagNames {
		var tagID int64
		stmt = `
			INSERT INTO tag (name)
			VALUES (?)
			ON CONFLICT (name) DO UPDATE SET name = excluded.name
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, stmt, name).Scan(&tagID); err != nil {
			return nil, errors.Wrapf(err, "failed to upsert tag %q", name)
		}
		stmt = `
			INSERT INTO article_tag (article_id, tag_id)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, stmt, article.ID, tagID); err != nil {
			return nil, errors.Wrapf(err, "failed to associate tag %q", name)
		}
	}

	for _, insight := range create.KeyInsights {
		stmt = `
			INSERT INTO key_insight (article_id, insight)
			VALUES (?, ?)
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
			e.summarization
		FROM article a
		JOIN embedding e ON e.article_id = a.id
		WHERE a.link_hash = ?
	`

	detail := &store.ArticleDetail{}
	var publishedDate string
	err := d.db.QueryRowContext(ctx, stmt, linkHash).Scan(
		&detail.ID,
		&detail.LinkHash,
		&detail.Link,
		&detail.Headline,
		&publishedDate,
		&detail.CreatedTs,
		&detail.UpdatedTs,
		&detail.Summarization,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get article")
	}
	if detail.PublishedDate, err = time.Parse(dateLayout, publishedDate); err != nil {
		return nil, errors.Wrap(err, "failed to parse published date")
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.name
		FROM article_tag at
		JOIN tag t ON t.id = at.tag_id
		WHERE at.article_id = ?
		ORDER BY t.name ASC
	`, detail.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list article tags")
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag name")
		}
		detail.TagNames = append(detail.TagNames, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	insightRows, err := d.db.QueryContext(ctx, `
		SELECT insight
		FROM key_insight
		WHERE article_id = ?
		ORDER BY id ASC
	`, detail.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list key insights")
	}
	defer insightRows.Close()
	for insightRows.Next() {
		var insight string
		if err := insightRows.Scan(&insight); err != nil {
			return nil, errors.Wrap(err, "failed to scan key insight")
		}
		detail.KeyInsights = append(detail.KeyInsights, insight)
	}
	if err := insightRows.Err(); err != nil {
		return nil, err
	}

	return detail, nil
}

func (d *DB) ListTags(ctx context.Context, find *store.FindTag) ([]*store.Tag, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Name != nil {
		where, args = append(where, "name = ?"), append(args, *find.Name)
	}
	if len(find.Names) > 0 {
		where = append(where, "name IN ("+placeholders(len(find.Names))+")")
		for _, name := range find.Names {
			args = append(args, name)
		}
	}

	query := `
		SELECT id, name, created_ts
		FROM tag
		WHERE ` + joinAnd(where) + `
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
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
