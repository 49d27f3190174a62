package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/lithammer/shortuuid/v4"
	pkgerrors "github.com/pkg/errors"

	"github.com/newstrove/newstrove/store"
)

// Stats summarizes one ingestion run.
type Stats struct {
	// Created counts articles written for the first time.
	Created int
	// Skipped counts records whose link hash was already present, including
	// races lost at commit time.
	Skipped int
	// Failed counts records rejected by validation or by the embedding
	// service. Failures never abort the rest of the run.
	Failed int
}

// Pipeline turns joined feed records into stored articles, one independent
// unit of work per record.
type Pipeline struct {
	store  *store.Store
	logger *slog.Logger
}

func NewPipeline(st *store.Store) *Pipeline {
	return &Pipeline{
		store:  st,
		logger: slog.Default().With("component", "ingest"),
	}
}

// RunFromFiles joins the two JSONL feed files and ingests the result.
func (p *Pipeline) RunFromFiles(ctx context.Context, categoryPath, summaryPath string) (*Stats, error) {
	categoryFile, err := os.Open(categoryPath)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open category feed")
	}
	defer categoryFile.Close()

	summaryFile, err := os.Open(summaryPath)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open summary feed")
	}
	defer summaryFile.Close()

	records, err := JoinFeeds(p.logger, categoryFile, summaryFile)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, records)
}

// Run ingests each record on its own. A record failure is counted and logged,
// never fatal; the run stops early only when the context is canceled.
func (p *Pipeline) Run(ctx context.Context, records []*Record) (*Stats, error) {
	runID := shortuuid.New()
	start := time.Now()
	stats := &Stats{}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		switch err := p.ingestOne(ctx, record); {
		case err == nil:
			stats.Created++
		case errors.Is(err, store.ErrArticleExists):
			stats.Skipped++
		default:
			stats.Failed++
			p.logger.Warn("record failed",
				"run_id", runID,
				"link_hash", record.LinkHash,
				"error", err,
			)
		}
	}

	p.logger.Info("ingestion run finished",
		"run_id", runID,
		"records", len(records),
		"created", stats.Created,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", time.Since(start).String(),
	)
	return stats, nil
}

// ingestOne performs one idempotent ingestion unit. The existence pre-check
// keeps re-runs cheap; the unique constraint on link hash still backstops
// concurrent writers, with the loser surfacing ErrArticleExists.
func (p *Pipeline) ingestOne(ctx context.Context, record *Record) error {
	exists, err := p.store.ArticleExists(ctx, record.LinkHash)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrArticleExists
	}

	_, err = p.store.CreateArticleBundle(ctx, &store.CreateArticleBundle{
		LinkHash:      record.LinkHash,
		Link:          record.Link,
		Headline:      record.Headline,
		PublishedDate: record.PublishedDate,
		Summarization: record.Summarization,
		TagNames:      record.TagNames,
		KeyInsights:   record.KeyInsights,
	})
	return err
}
