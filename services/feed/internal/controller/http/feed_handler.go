package http

import (
	"net/http"

	"blogfeed/pkg/logger"
	"blogfeed/pkg/middleware"
	"blogfeed/services/feed/internal/usecase"

	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	feedUseCase     usecase.FeedUseCase
	defaultPageSize int
	logger          *logger.Logger
}

func NewFeedHandler(feedUseCase usecase.FeedUseCase, defaultPageSize int, logger *logger.Logger) *FeedHandler {
	return &FeedHandler{
		feedUseCase:     feedUseCase,
		defaultPageSize: defaultPageSize,
		logger:          logger,
	}
}

// GetGlobalFeed godoc
// @Summary      Global feed
// @Description  Newest posts first with author, comment count, like count and the caller's like status
// @Tags         feed
// @Produce      json
// @Param        pageIndex query int false "Zero-based page index" default(0)
// @Param        pageSize  query int false "Page size" default(10)
// @Success      200  {object}  entity.FeedPage
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /posts [get]
func (h *FeedHandler) GetGlobalFeed(c *gin.Context) {
	pageIndex, pageSize, ok := pagination(c, h.defaultPageSize)
	if !ok {
		return
	}

	page, err := h.feedUseCase.GetGlobalFeed(c.Request.Context(), c.GetString(middleware.ContextUserID), pageIndex, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetPost godoc
// @Summary      Post detail
// @Tags         posts
// @Produce      json
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  entity.PostDetail
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [get]
func (h *FeedHandler) GetPost(c *gin.Context) {
	detail, err := h.feedUseCase.GetPostDetail(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetPostForEdit godoc
// @Summary      Open a post for editing
// @Description  Returns title, body and image ref. Only the author may call it.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  entity.EditView
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id}/edit [get]
func (h *FeedHandler) GetPostForEdit(c *gin.Context) {
	view, err := h.feedUseCase.GetPostForEdit(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetAuthorFeed godoc
// @Summary      Author feed
// @Tags         feed
// @Produce      json
// @Param        username  path   string  true   "Author username"
// @Param        pageIndex query  int     false  "Zero-based page index" default(0)
// @Param        pageSize  query  int     false  "Page size" default(10)
// @Success      200  {object}  entity.AuthorFeed
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{username}/posts [get]
func (h *FeedHandler) GetAuthorFeed(c *gin.Context) {
	pageIndex, pageSize, ok := pagination(c, h.defaultPageSize)
	if !ok {
		return
	}

	feed, err := h.feedUseCase.GetAuthorFeed(c.Request.Context(), c.Param("username"), pageIndex, pageSize, c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

// GetLikedFeed godoc
// @Summary      Posts the caller liked
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        pageIndex query int false "Zero-based page index" default(0)
// @Param        pageSize  query int false "Page size" default(10)
// @Success      200  {object}  entity.FeedPage
// @Failure      401  {object}  ErrorResponse
// @Router       /me/liked [get]
func (h *FeedHandler) GetLikedFeed(c *gin.Context) {
	pageIndex, pageSize, ok := pagination(c, h.defaultPageSize)
	if !ok {
		return
	}

	page, err := h.feedUseCase.GetLikedFeed(c.Request.Context(), c.GetString(middleware.ContextUserID), pageIndex, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// ListComments godoc
// @Summary      Comments on a post, oldest first
// @Tags         comments
// @Produce      json
// @Param        id        path   string  true   "Post ID"
// @Param        pageIndex query  int     false  "Zero-based page index" default(0)
// @Param        pageSize  query  int     false  "Page size" default(10)
// @Success      200  {object}  entity.CommentPage
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id}/comments [get]
func (h *FeedHandler) ListComments(c *gin.Context) {
	pageIndex, pageSize, ok := pagination(c, h.defaultPageSize)
	if !ok {
		return
	}

	page, err := h.feedUseCase.ListComments(c.Request.Context(), c.Param("id"), pageIndex, pageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
