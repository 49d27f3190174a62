package search

import (
	"math"
	"sort"
	"time"

	"github.com/newstrove/newstrove/store"
)

// RankedArticle is one row of a merged search result.
type RankedArticle struct {
	// ArticlePositionID is the 1-based rank of the article in the merged
	// result, assigned after the final sort.
	ArticlePositionID int
	// EmbeddingPositionID is the 1-based rank of the article within the vector
	// candidate set, nil when the article came only from the tag generator.
	EmbeddingPositionID *int

	LinkHash      string
	Link          string
	Headline      string
	PublishedDate time.Time
	Summarization string
	// Distance is the cosine distance to the query vector, rounded to four
	// decimal places. The rounded value is also what ranking compares, so two
	// articles within 5e-5 of each other tie on distance.
	Distance    float64
	TagNames    []string
	KeyInsights []string
}

// MergeRank deduplicates the two candidate sets by link hash and orders the
// union. When an article appears in both sets the tag-generator row wins field
// by field, since it is the one that carries the complete tag set; the
// embedding position survives from the vector row either way.
//
// Rank order: more matched tags first, then nearer by rounded distance, then
// ascending link hash so equal rows always land in the same order.
func MergeRank(tagResults, embeddingResults []*store.SearchCandidate) []*RankedArticle {
	merged := make(map[string]*RankedArticle, len(tagResults)+len(embeddingResults))

	for i, candidate := range embeddingResults {
		position := i + 1
		row := fromCandidate(candidate)
		row.EmbeddingPositionID = &position
		merged[candidate.LinkHash] = row
	}

	for _, candidate := range tagResults {
		row := fromCandidate(candidate)
		if existing, ok := merged[candidate.LinkHash]; ok {
			row.EmbeddingPositionID = existing.EmbeddingPositionID
		}
		merged[candidate.LinkHash] = row
	}

	ranked := make([]*RankedArticle, 0, len(merged))
	for _, row := range merged {
		row.Distance = roundDistance(row.Distance)
		ranked = append(ranked, row)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if len(ranked[i].TagNames) != len(ranked[j].TagNames) {
			return len(ranked[i].TagNames) > len(ranked[j].TagNames)
		}
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].LinkHash < ranked[j].LinkHash
	})

	for i, row := range ranked {
		row.ArticlePositionID = i + 1
	}
	return ranked
}

func fromCandidate(candidate *store.SearchCandidate) *RankedArticle {
	return &RankedArticle{
		LinkHash:      candidate.LinkHash,
		Link:          candidate.Link,
		Headline:      candidate.Headline,
		PublishedDate: candidate.PublishedDate,
		Summarization: candidate.Summarization,
		Distance:      candidate.Distance,
		TagNames:      candidate.TagNames,
		KeyInsights:   candidate.KeyInsights,
	}
}

func roundDistance(d float64) float64 {
	return math.Round(d*10000) / 10000
}
