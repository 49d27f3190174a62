package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/newstrove/newstrove/server/search"
)

// publishedDateLayout is the wire format of article dates.
const publishedDateLayout = "2006-01-02"

type rankedArticleResponse struct {
	ArticlePositionID   int      `json:"article_position_id"`
	Link                string   `json:"link"`
	LinkHash            string   `json:"link_hash"`
	Headline            string   `json:"headline"`
	PublishedDate       string   `json:"published_date"`
	Summarization       string   `json:"summarization"`
	KeyInsights         []string `json:"key_insights"`
	TagNames            []string `json:"tag_names,omitempty"`
	EmbeddingPositionID *int     `json:"embedding_position_id,omitempty"`
	Distance            float64  `json:"distance"`
}

type searchArticlesResponse struct {
	Articles []*rankedArticleResponse `json:"articles"`
}

// searchArticles handles GET /api/v1/articles/search. The tags parameter is a
// comma-separated list; limit caps each candidate generator separately, so the
// merged result may hold up to twice that many articles.
func (s *APIV1Service) searchArticles(c echo.Context) error {
	rawTags := c.QueryParam("tags")
	if strings.TrimSpace(rawTags) == "" {
		return c.JSON(http.StatusBadRequest, &errorResponse{
			Code:    ErrCodeInvalidArgument,
			Message: "tags is required",
		})
	}

	limit := search.DefaultLimit
	if rawLimit := c.QueryParam("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, &errorResponse{
				Code:    ErrCodeInvalidArgument,
				Message: "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	ranked, err := s.Engine.SearchByTags(c.Request().Context(), strings.Split(rawTags, ","), limit)
	if err != nil {
		return s.toErrorResponse(c, err)
	}

	articles := make([]*rankedArticleResponse, 0, len(ranked))
	for _, row := range ranked {
		articles = append(articles, &rankedArticleResponse{
			ArticlePositionID:   row.ArticlePositionID,
			Link:                row.Link,
			LinkHash:            row.LinkHash,
			Headline:            row.Headline,
			PublishedDate:       row.PublishedDate.Format(publishedDateLayout),
			Summarization:       row.Summarization,
			KeyInsights:         emptyIfNil(row.KeyInsights),
			TagNames:            row.TagNames,
			EmbeddingPositionID: row.EmbeddingPositionID,
			Distance:            row.Distance,
		})
	}
	return c.JSON(http.StatusOK, &searchArticlesResponse{Articles: articles})
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
