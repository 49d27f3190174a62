package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newstrove/newstrove/store"
	storetest "github.com/newstrove/newstrove/store/test"
)

// axis returns a unit vector pointing along one embedding axis, which makes
// cosine distances exact: same axis is 0, orthogonal axes are 1.
func axis(i int) []float32 {
	v := make([]float32, storetest.TestDimensions)
	v[i] = 1
	return v
}

func blend(i, j int) []float32 {
	v := make([]float32, storetest.TestDimensions)
	v[i] = 0.7071068
	v[j] = 0.7071068
	return v
}

func seedArticle(ctx context.Context, t *testing.T, st *store.Store, linkHash, summarization string, tagNames, keyInsights []string) {
	t.Helper()
	_, err := st.CreateArticleBundle(ctx, &store.CreateArticleBundle{
		LinkHash:      linkHash,
		Link:          "https://news.example.com/" + linkHash,
		Headline:      "headline " + linkHash,
		PublishedDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Summarization: summarization,
		TagNames:      tagNames,
		KeyInsights:   keyInsights,
	})
	require.NoError(t, err)
}

func TestEngineSearchByTags(t *testing.T) {
	ctx := context.Background()
	st, mock := storetest.NewTestingStore(ctx, t)

	vectors := map[string][]float32{
		"summary alpha": axis(0),
		"summary beta":  blend(0, 1),
		"summary gamma": axis(1),
		"ai\n chips":    axis(0),
	}
	mock.EmbedFunc = func(_ context.Context, text string) ([]float32, error) {
		v, ok := vectors[text]
		if !ok {
			return nil, fmt.Errorf("unexpected embedding input %q", text)
		}
		return v, nil
	}

	seedArticle(ctx, t, st, "hash-alpha", "summary alpha",
		[]string{"ai", "chips", "hardware"}, []string{"alpha insight"})
	seedArticle(ctx, t, st, "hash-beta", "summary beta",
		[]string{"ai"}, nil)
	seedArticle(ctx, t, st, "hash-gamma", "summary gamma",
		[]string{"space"}, nil)

	engine := NewEngine(st, mock)
	ranked, err := engine.SearchByTags(ctx, []string{" AI ", "chips", "ai"}, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	// alpha matched two requested tags but carries its complete tag set;
	// beta matched one; gamma matched none and comes in on distance alone.
	require.Equal(t, "hash-alpha", ranked[0].LinkHash)
	require.Equal(t, []string{"ai", "chips", "hardware"}, ranked[0].TagNames)
	require.Equal(t, []string{"alpha insight"}, ranked[0].KeyInsights)
	require.Equal(t, 0.0, ranked[0].Distance)

	require.Equal(t, "hash-beta", ranked[1].LinkHash)
	require.Equal(t, "hash-gamma", ranked[2].LinkHash)
	require.Empty(t, ranked[2].TagNames)

	for i, row := range ranked {
		require.Equal(t, i+1, row.ArticlePositionID)
		require.NotNil(t, row.EmbeddingPositionID)
	}
	require.Equal(t, 1, *ranked[0].EmbeddingPositionID)
	require.Equal(t, 2, *ranked[1].EmbeddingPositionID)
	require.Equal(t, 3, *ranked[2].EmbeddingPositionID)
}

func TestEngineSearchByTagsLimit(t *testing.T) {
	ctx := context.Background()
	st, mock := storetest.NewTestingStore(ctx, t)

	for i := 0; i < 5; i++ {
		seedArticle(ctx, t, st, fmt.Sprintf("hash-%d", i), fmt.Sprintf("summary %d", i),
			[]string{"ai"}, nil)
	}

	engine := NewEngine(st, mock)
	ranked, err := engine.SearchByTags(ctx, []string{"ai"}, 2)
	require.NoError(t, err)
	// Each generator is capped independently; over one shared tag the two
	// candidate sets need not coincide, so the union may exceed the cap.
	require.GreaterOrEqual(t, len(ranked), 2)
	require.LessOrEqual(t, len(ranked), 4)
}

func TestEngineSearchByTagsRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	st, mock := storetest.NewTestingStore(ctx, t)
	engine := NewEngine(st, mock)

	_, err := engine.SearchByTags(ctx, nil, 10)
	require.True(t, store.IsValidation(err))

	_, err = engine.SearchByTags(ctx, []string{"  ", ""}, 10)
	require.True(t, store.IsValidation(err))
}

func TestEngineSearchByTagsEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	st, mock := storetest.NewTestingStore(ctx, t)

	mock.EmbedFunc = func(context.Context, string) ([]float32, error) {
		return nil, fmt.Errorf("upstream exploded")
	}

	engine := NewEngine(st, mock)
	_, err := engine.SearchByTags(ctx, []string{"ai"}, 10)
	var upstream *store.UpstreamError
	require.ErrorAs(t, err, &upstream)
}
