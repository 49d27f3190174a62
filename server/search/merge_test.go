package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newstrove/newstrove/store"
)

func candidate(linkHash string, distance float64, tagNames ...string) *store.SearchCandidate {
	return &store.SearchCandidate{
		LinkHash: linkHash,
		Link:     "https://news.example.com/" + linkHash,
		Headline: "headline " + linkHash,
		Distance: distance,
		TagNames: tagNames,
	}
}

func TestMergeRankDeduplicates(t *testing.T) {
	tagResults := []*store.SearchCandidate{
		candidate("aaa", 0.30, "ai", "chips", "hardware"),
	}
	embeddingResults := []*store.SearchCandidate{
		candidate("aaa", 0.30, "ai"),
		candidate("bbb", 0.10),
	}

	ranked := MergeRank(tagResults, embeddingResults)
	require.Len(t, ranked, 2)

	// The duplicate keeps the tag-generator fields (complete tag set) and the
	// embedding position from the vector row.
	require.Equal(t, "aaa", ranked[0].LinkHash)
	require.Equal(t, []string{"ai", "chips", "hardware"}, ranked[0].TagNames)
	require.NotNil(t, ranked[0].EmbeddingPositionID)
	require.Equal(t, 1, *ranked[0].EmbeddingPositionID)

	require.Equal(t, "bbb", ranked[1].LinkHash)
	require.Nil(t, ranked[1].TagNames)
	require.Equal(t, 2, *ranked[1].EmbeddingPositionID)
}

func TestMergeRankOrdersByTagCountThenDistance(t *testing.T) {
	// B matches more tags than A, so B ranks first even though A is nearer.
	tagResults := []*store.SearchCandidate{
		candidate("hashA", 0.10, "ai", "ml", "chips"),
		candidate("hashB", 0.40, "ai", "ml", "chips", "nvidia", "gpu"),
	}
	ranked := MergeRank(tagResults, nil)

	require.Len(t, ranked, 2)
	require.Equal(t, "hashB", ranked[0].LinkHash)
	require.Equal(t, "hashA", ranked[1].LinkHash)
	require.Equal(t, 1, ranked[0].ArticlePositionID)
	require.Equal(t, 2, ranked[1].ArticlePositionID)
	require.Nil(t, ranked[0].EmbeddingPositionID)
}

func TestMergeRankFallsBackToDistance(t *testing.T) {
	// No tag matches at all: pure nearest-neighbor order.
	embeddingResults := []*store.SearchCandidate{
		candidate("far", 0.72),
		candidate("near", 0.11),
		candidate("mid", 0.35),
	}
	ranked := MergeRank(nil, embeddingResults)

	require.Len(t, ranked, 3)
	require.Equal(t, "near", ranked[0].LinkHash)
	require.Equal(t, "mid", ranked[1].LinkHash)
	require.Equal(t, "far", ranked[2].LinkHash)
	// Embedding positions reflect the generator's own order, not the merge.
	require.Equal(t, 2, *ranked[0].EmbeddingPositionID)
	require.Equal(t, 3, *ranked[1].EmbeddingPositionID)
	require.Equal(t, 1, *ranked[2].EmbeddingPositionID)
}

func TestMergeRankRoundsDistanceForTies(t *testing.T) {
	// Distances equal after rounding to four decimals tie, so the link hash
	// breaks the order deterministically.
	tagResults := []*store.SearchCandidate{
		candidate("zzz", 0.123449, "ai"),
		candidate("aaa", 0.123451, "ml"),
	}
	ranked := MergeRank(tagResults, nil)

	require.Len(t, ranked, 2)
	require.Equal(t, 0.1234, ranked[0].Distance)
	require.Equal(t, 0.1235, ranked[1].Distance)
	require.Equal(t, "zzz", ranked[0].LinkHash)

	exact := []*store.SearchCandidate{
		candidate("zzz", 0.12341, "ai"),
		candidate("aaa", 0.12344, "ml"),
	}
	ranked = MergeRank(exact, nil)
	require.Equal(t, ranked[0].Distance, ranked[1].Distance)
	require.Equal(t, "aaa", ranked[0].LinkHash)
	require.Equal(t, "zzz", ranked[1].LinkHash)
}

func TestMergeRankEmpty(t *testing.T) {
	require.Empty(t, MergeRank(nil, nil))
}
