package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newstrove/newstrove/store"
)

func testBundle(linkHash string) *store.CreateArticleBundle {
	return &store.CreateArticleBundle{
		LinkHash:      linkHash,
		Link:          "https://news.example.com/" + linkHash,
		Headline:      "headline " + linkHash,
		PublishedDate: time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		Summarization: "summary " + linkHash,
		TagNames:      []string{"science"},
		KeyInsights:   []string{"first insight"},
	}
}

func TestCreateArticleBundleRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, _ := NewTestingStore(ctx, t)

	bundle := testBundle("h1")
	bundle.TagNames = []string{"Science", "  AI ", "science"}
	bundle.KeyInsights = []string{"first insight", "first insight", "second insight", " "}

	article, err := st.CreateArticleBundle(ctx, bundle)
	require.NoError(t, err)
	require.NotZero(t, article.ID)
	require.Equal(t, "h1", article.LinkHash)
	require.NotZero(t, article.CreatedTs)

	detail, err := st.GetArticleByLinkHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, article.ID, detail.ID)
	require.Equal(t, "https://news.example.com/h1", detail.Link)
	require.Equal(t, "headline h1", detail.Headline)
	require.Equal(t, "summary h1", detail.Summarization)
	require.Equal(t, bundle.PublishedDate, detail.PublishedDate)
	// Tag names come back normalized, deduplicated and sorted.
	require.Equal(t, []string{"ai", "science"}, detail.TagNames)
	require.Equal(t, []string{"first insight", "second insight"}, detail.KeyInsights)
}

func TestCreateArticleBundleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st, _ := NewTestingStore(ctx, t)

	_, err := st.CreateArticleBundle(ctx, testBundle("h1"))
	require.NoError(t, err)

	exists, err := st.ArticleExists(ctx, "h1")
	require.NoError(t, err)
	require.True(t, exists)

	// A duplicate link hash surfaces the conflict sentinel even if the
	// existence pre-check was skipped.
	duplicate := testBundle("h1")
	duplicate.Headline = "different headline"
	_, err = st.CreateArticleBundle(ctx, duplicate)
	require.ErrorIs(t, err, store.ErrArticleExists)

	// Nothing was overwritten.
	detail, err := st.GetArticleByLinkHash(ctx, "h1")
	require.NoError(t, err)
	require.Equal(t, "headline h1", detail.Headline)
}

func TestCreateArticleBundleValidation(t *testing.T) {
	ctx := context.Background()
	st, _ := NewTestingStore(ctx, t)

	for _, mutate := range []func(*store.CreateArticleBundle){
		func(b *store.CreateArticleBundle) { b.LinkHash = " " },
		func(b *store.CreateArticleBundle) { b.Link = "" },
		func(b *store.CreateArticleBundle) { b.Headline = "" },
		func(b *store.CreateArticleBundle) { b.PublishedDate = time.Time{} },
		func(b *store.CreateArticleBundle) { b.Summarization = "" },
	} {
		bundle := testBundle("h1")
		mutate(bundle)
		_, err := st.CreateArticleBundle(ctx, bundle)
		require.True(t, store.IsValidation(err), "expected validation error, got %v", err)
	}

	exists, err := st.ArticleExists(ctx, "h1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCreateArticleBundleRollsBackOnEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	st, mock := NewTestingStore(ctx, t)

	mock.EmbedFunc = func(context.Context, string) ([]float32, error) {
		return nil, fmt.Errorf("service down")
	}

	_, err := st.CreateArticleBundle(ctx, testBundle("h1"))
	var upstream *store.UpstreamError
	require.ErrorAs(t, err, &upstream)

	// No partial rows: not the article, not its tags.
	_, err = st.GetArticleByLinkHash(ctx, "h1")
	require.ErrorIs(t, err, store.ErrNotFound)

	tags, err := st.ListTags(ctx, &store.FindTag{})
	require.NoError(t, err)
	require.Empty(t, tags)
}

func TestCreateArticleBundleRejectsWrongDimensions(t *testing.T) {
	ctx := context.Background()
	st, mock := NewTestingStore(ctx, t)

	mock.EmbedFunc = func(context.Context, string) ([]float32, error) {
		return make([]float32, TestDimensions+1), nil
	}

	_, err := st.CreateArticleBundle(ctx, testBundle("h1"))
	var upstream *store.UpstreamError
	require.ErrorAs(t, err, &upstream)
}

func TestTagReuseAcrossArticles(t *testing.T) {
	ctx := context.Background()
	st, _ := NewTestingStore(ctx, t)

	first := testBundle("h1")
	first.TagNames = []string{"zoo", "ai"}
	_, err := st.CreateArticleBundle(ctx, first)
	require.NoError(t, err)

	second := testBundle("h2")
	second.TagNames = []string{"zoo"}
	_, err = st.CreateArticleBundle(ctx, second)
	require.NoError(t, err)

	// Exactly one tag row named "zoo", shared by both articles.
	zoo := "zoo"
	tags, err := st.ListTags(ctx, &store.FindTag{Name: &zoo})
	require.NoError(t, err)
	require.Len(t, tags, 1)

	for _, linkHash := range []string{"h1", "h2"} {
		detail, err := st.GetArticleByLinkHash(ctx, linkHash)
		require.NoError(t, err)
		require.Contains(t, detail.TagNames, "zoo")
	}
}

func TestGetArticleByLinkHashNotFound(t *testing.T) {
	ctx := context.Background()
	st, _ := NewTestingStore(ctx, t)

	_, err := st.GetArticleByLinkHash(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListTags(t *testing.T) {
	ctx := context.Background()
	st, _ := NewTestingStore(ctx, t)

	bundle := testBundle("h1")
	bundle.TagNames = []string{"beta", "alpha"}
	_, err := st.CreateArticleBundle(ctx, bundle)
	require.NoError(t, err)

	tags, err := st.ListTags(ctx, &store.FindTag{})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.Equal(t, "alpha", tags[0].Name)
	require.Equal(t, "beta", tags[1].Name)

	tags, err = st.ListTags(ctx, &store.FindTag{Names: []string{"alpha", "missing"}})
	require.NoError(t, err)
	require.Len(t, tags, 1)
}
