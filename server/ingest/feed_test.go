package ingest

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJoinFeeds(t *testing.T) {
	categories := strings.NewReader(strings.Join([]string{
		`{"link_hash":"h1","link":"https://news.example.com/1","headline":"one","date":"2025-03-14"}`,
		`{"link_hash":"h2","link":"https://news.example.com/2","headline":"two","date":"2025-03-15"}`,
		`{"link_hash":"h3","link":"https://news.example.com/3","headline":"three","date":"2025-03-16"}`,
	}, "\n"))
	summaries := strings.NewReader(strings.Join([]string{
		`{"link_hash":"h2","summarization":"about two","tags":["b"],"key_insights":[]}`,
		`{"link_hash":"h1","summarization":"about one","tags":["a","b"],"key_insights":["i1"]}`,
	}, "\n"))

	records, err := JoinFeeds(slog.Default(), categories, summaries)
	require.NoError(t, err)

	// Inner join in category order; h3 has no summary.
	require.Len(t, records, 2)
	require.Equal(t, "h1", records[0].LinkHash)
	require.Equal(t, "about one", records[0].Summarization)
	require.Equal(t, []string{"a", "b"}, records[0].TagNames)
	require.Equal(t, []string{"i1"}, records[0].KeyInsights)
	require.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), records[0].PublishedDate)
	require.Equal(t, "h2", records[1].LinkHash)
}

func TestJoinFeedsSkipsBadLines(t *testing.T) {
	categories := strings.NewReader(strings.Join([]string{
		`not json at all`,
		`{"link":"https://news.example.com/0","headline":"missing hash","date":"2025-01-01"}`,
		`{"link_hash":"bad-date","link":"https://news.example.com/d","headline":"d","date":"last tuesday"}`,
		``,
		`{"link_hash":"ok","link":"https://news.example.com/ok","headline":"fine","date":"2025-01-02"}`,
	}, "\n"))
	summaries := strings.NewReader(strings.Join([]string{
		`{"link_hash":"bad-date","summarization":"s"}`,
		`{"link_hash":"ok","summarization":"s","tags":["t"]}`,
		`{broken`,
	}, "\n"))

	records, err := JoinFeeds(slog.Default(), categories, summaries)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "ok", records[0].LinkHash)
}

func TestParsePublishedDate(t *testing.T) {
	for _, value := range []string{
		"2025-07-09",
		"2025-07-09T08:30:00Z",
		"2025-07-09 08:30:00",
	} {
		parsed, err := parsePublishedDate(value)
		require.NoError(t, err, value)
		require.Equal(t, 2025, parsed.Year())
		require.Equal(t, time.July, parsed.Month())
	}

	_, err := parsePublishedDate("09/07/2025")
	require.Error(t, err)
}
