package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newstrove/newstrove/internal/profile"
	"github.com/newstrove/newstrove/server/search"
	"github.com/newstrove/newstrove/store"
)

// ErrorCode classifies API failures for clients.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeNotFound indicates the requested resource does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUpstreamUnavailable indicates a dependency, such as the embedding
	// service, failed.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrCodeInternal indicates an unexpected server-side failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

type errorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// APIV1Service wires the HTTP surface to the store and the search engine.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Engine  *search.Engine

	logger *slog.Logger
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, engine *search.Engine) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   store,
		Engine:  engine,
		logger:  slog.Default().With("component", "api"),
	}
}

// Register mounts all v1 routes on the given Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	group := echoServer.Group("/api/v1")
	group.GET("/articles/search", s.searchArticles)
	group.GET("/articles/:linkHash", s.getArticleByLinkHash)
	group.GET("/tags", s.listTags)
	group.POST("/links/hash", s.hashLink)
}

// toErrorResponse maps a store-layer error onto an HTTP status and a stable
// client-facing code. Internal error text is logged, not leaked.
func (s *APIV1Service) toErrorResponse(c echo.Context, err error) error {
	var validation *store.ValidationError
	var upstream *store.UpstreamError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, &errorResponse{
			Code:    ErrCodeInvalidArgument,
			Message: validation.Error(),
		})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, &errorResponse{
			Code:    ErrCodeNotFound,
			Message: "not found",
		})
	case errors.As(err, &upstream):
		s.logger.Error("upstream failure", "path", c.Path(), "error", err)
		return c.JSON(http.StatusBadGateway, &errorResponse{
			Code:    ErrCodeUpstreamUnavailable,
			Message: upstream.Service + " unavailable",
		})
	default:
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, &errorResponse{
			Code:    ErrCodeInternal,
			Message: "internal error",
		})
	}
}
