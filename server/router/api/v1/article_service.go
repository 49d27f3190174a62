package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/newstrove/newstrove/store"
)

type articleResponse struct {
	Link          string   `json:"link"`
	LinkHash      string   `json:"link_hash"`
	Headline      string   `json:"headline"`
	PublishedDate string   `json:"published_date"`
	Summarization string   `json:"summarization"`
	KeyInsights   []string `json:"key_insights"`
	TagNames      []string `json:"tag_names"`
}

// getArticleByLinkHash handles GET /api/v1/articles/:linkHash.
func (s *APIV1Service) getArticleByLinkHash(c echo.Context) error {
	linkHash := strings.TrimSpace(c.Param("linkHash"))
	if linkHash == "" {
		return c.JSON(http.StatusBadRequest, &errorResponse{
			Code:    ErrCodeInvalidArgument,
			Message: "link hash is required",
		})
	}

	detail, err := s.Store.GetArticleByLinkHash(c.Request().Context(), linkHash)
	if err != nil {
		return s.toErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, &articleResponse{
		Link:          detail.Link,
		LinkHash:      detail.LinkHash,
		Headline:      detail.Headline,
		PublishedDate: detail.PublishedDate.Format(publishedDateLayout),
		Summarization: detail.Summarization,
		KeyInsights:   emptyIfNil(detail.KeyInsights),
		TagNames:      emptyIfNil(detail.TagNames),
	})
}

type tagResponse struct {
	Name string `json:"name"`
}

type listTagsResponse struct {
	Tags []*tagResponse `json:"tags"`
}

// listTags handles GET /api/v1/tags. An optional name parameter filters to an
// exact normalized tag name.
func (s *APIV1Service) listTags(c echo.Context) error {
	find := &store.FindTag{}
	if name := store.NormalizeTag(c.QueryParam("name")); name != "" {
		find.Name = &name
	}

	tags, err := s.Store.ListTags(c.Request().Context(), find)
	if err != nil {
		return s.toErrorResponse(c, err)
	}

	response := &listTagsResponse{Tags: make([]*tagResponse, 0, len(tags))}
	for _, tag := range tags {
		response.Tags = append(response.Tags, &tagResponse{Name: tag.Name})
	}
	return c.JSON(http.StatusOK, response)
}

type hashLinkRequest struct {
	Link string `json:"link"`
}

type hashLinkResponse struct {
	Link     string `json:"link"`
	LinkHash string `json:"link_hash"`
}

// hashLink handles POST /api/v1/links/hash: it returns the canonical link
// hash for a URL so callers can address articles without storing the mapping
// themselves.
func (s *APIV1Service) hashLink(c echo.Context) error {
	request := &hashLinkRequest{}
	if err := c.Bind(request); err != nil || strings.TrimSpace(request.Link) == "" {
		return c.JSON(http.StatusBadRequest, &errorResponse{
			Code:    ErrCodeInvalidArgument,
			Message: "link is required",
		})
	}
	return c.JSON(http.StatusOK, &hashLinkResponse{
		Link:     request.Link,
		LinkHash: store.HashLink(request.Link),
	})
}
