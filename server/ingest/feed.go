package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CategoryRecord is one line of the category/metadata feed: where the article
// lives and when it was published.
type CategoryRecord struct {
	LinkHash string `json:"link_hash"`
	Link     string `json:"link"`
	Headline string `json:"headline"`
	Date     string `json:"date"`
}

// SummaryRecord is one line of the LLM-summary feed: the derived text
// artifacts for an article, correlated to the category feed by link hash.
type SummaryRecord struct {
	LinkHash      string   `json:"link_hash"`
	Summarization string   `json:"summarization"`
	Tags          []string `json:"tags"`
	KeyInsights   []string `json:"key_insights"`
}

// Record is one joined feed tuple, the input of a single ingestion unit.
type Record struct {
	LinkHash      string
	Link          string
	Headline      string
	PublishedDate time.Time
	Summarization string
	TagNames      []string
	KeyInsights   []string
}

// Feed lines occasionally carry full timestamps instead of plain dates.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

func parsePublishedDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date %q", value)
}

// maxLineSize bounds a single feed line; summary lines carry whole article
// summaries and blow past bufio's default.
const maxLineSize = 1 << 20

// JoinFeeds reads both JSONL feeds and inner-joins them on link hash,
// preserving category-feed order. Lines that fail to decode, lack a link hash,
// carry an unparseable date, or have no counterpart in the other feed are
// skipped with a diagnostic; only a read failure aborts the join.
func JoinFeeds(logger *slog.Logger, categories, summaries io.Reader) ([]*Record, error) {
	summaryByHash := make(map[string]*SummaryRecord)
	if err := scanLines(summaries, func(lineNo int, line []byte) {
		record := &SummaryRecord{}
		if err := json.Unmarshal(line, record); err != nil {
			logger.Warn("skipping malformed summary line", "line", lineNo, "error", err)
			return
		}
		if record.LinkHash == "" {
			logger.Warn("skipping summary line without link hash", "line", lineNo)
			return
		}
		summaryByHash[record.LinkHash] = record
	}); err != nil {
		return nil, errors.Wrap(err, "failed to read summary feed")
	}

	var records []*Record
	if err := scanLines(categories, func(lineNo int, line []byte) {
		category := &CategoryRecord{}
		if err := json.Unmarshal(line, category); err != nil {
			logger.Warn("skipping malformed category line", "line", lineNo, "error", err)
			return
		}
		if category.LinkHash == "" {
			logger.Warn("skipping category line without link hash", "line", lineNo)
			return
		}
		summary, ok := summaryByHash[category.LinkHash]
		if !ok {
			logger.Warn("skipping category line without matching summary", "line", lineNo, "link_hash", category.LinkHash)
			return
		}
		publishedDate, err := parsePublishedDate(category.Date)
		if err != nil {
			logger.Warn("skipping category line with bad date", "line", lineNo, "link_hash", category.LinkHash, "error", err)
			return
		}
		records = append(records, &Record{
			LinkHash:      category.LinkHash,
			Link:          category.Link,
			Headline:      category.Headline,
			PublishedDate: publishedDate,
			Summarization: summary.Summarization,
			TagNames:      summary.Tags,
			KeyInsights:   summary.KeyInsights,
		})
	}); err != nil {
		return nil, errors.Wrap(err, "failed to read category feed")
	}
	return records, nil
}

func scanLines(r io.Reader, handle func(lineNo int, line []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handle(lineNo, []byte(line))
	}
	return scanner.Err()
}
