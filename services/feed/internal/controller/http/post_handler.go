package http

import (
	"mime/multipart"
	"net/http"
	"strings"

	"blogfeed/pkg/logger"
	"blogfeed/pkg/middleware"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/usecase"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20

type PostHandler struct {
	postUseCase usecase.PostUseCase
	logger      *logger.Logger
}

func NewPostHandler(postUseCase usecase.PostUseCase, logger *logger.Logger) *PostHandler {
	return &PostHandler{
		postUseCase: postUseCase,
		logger:      logger,
	}
}

type CreatePostRequest struct {
	Title string `form:"title" json:"title"`
	Body  string `form:"body" json:"body"`
}

type UpdatePostRequest struct {
	Title       *string `form:"title" json:"title"`
	Body        *string `form:"body" json:"body"`
	RemoveImage bool    `form:"remove_image" json:"remove_image"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// openImage returns the optional "image" part. The caller closes the file.
func openImage(c *gin.Context) (*entity.ImageUpload, multipart.File, bool) {
	if !isMultipart(c) {
		return nil, nil, true
	}

	header, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, nil, true
	}
	if err != nil {
		badRequest(c, "Failed to read image")
		return nil, nil, false
	}
	if header.Size > maxImageSize {
		badRequest(c, "Image is larger than 10MB")
		return nil, nil, false
	}

	file, err := header.Open()
	if err != nil {
		badRequest(c, "Failed to read image")
		return nil, nil, false
	}

	return &entity.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, file, true
}

// CreatePost godoc
// @Summary      Create a post
// @Description  Accepts JSON or multipart/form-data with an optional image part.
// @Tags         posts
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        title  formData  string  true   "Post title"
// @Param        body   formData  string  true   "Post body"
// @Param        image  formData  file    false  "Post image"
// @Success      201  {object}  entity.Post
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Malformed request body")
		return
	}

	image, file, ok := openImage(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}

	post, err := h.postUseCase.CreatePost(c.Request.Context(), userID, req.Title, req.Body, image)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary      Edit a post
// @Description  Only title, body and image can change. Only the author may edit.
// @Tags         posts
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true   "Post ID"
// @Param        title         formData  string  false  "New title"
// @Param        body          formData  string  false  "New body"
// @Param        remove_image  formData  bool    false  "Drop the current image"
// @Param        image         formData  file    false  "Replacement image"
// @Success      200  {object}  entity.Post
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [put]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req UpdatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Malformed request body")
		return
	}

	image, file, ok := openImage(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}

	edit := entity.PostEdit{
		Title:       req.Title,
		Body:        req.Body,
		Image:       image,
		RemoveImage: req.RemoveImage,
	}

	post, err := h.postUseCase.EditPost(c.Request.Context(), c.Param("id"), userID, edit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary      Delete a post with its comments and likes
// @Tags         posts
// @Security     BearerAuth
// @Param        id   path  string  true  "Post ID"
// @Success      204
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /posts/{id} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	if err := h.postUseCase.DeletePost(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleLike godoc
// @Summary      Like or unlike a post
// @Tags         likes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  entity.ToggleResult
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /posts/{id}/like [post]
func (h *PostHandler) ToggleLike(c *gin.Context) {
	result, err := h.postUseCase.ToggleLike(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
