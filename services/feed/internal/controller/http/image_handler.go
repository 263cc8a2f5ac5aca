package http

import (
	"net/http"
	"strings"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ImageHandler struct {
	files  usecase.FileStore
	logger *logger.Logger
}

func NewImageHandler(files usecase.FileStore, logger *logger.Logger) *ImageHandler {
	return &ImageHandler{files: files, logger: logger}
}

// GetImage godoc
// @Summary      Stream a post image
// @Tags         images
// @Produce      octet-stream
// @Param        ref  path  string  true  "Image ref as returned in image_ref"
// @Success      200
// @Failure      404  {object}  ErrorResponse
// @Router       /images/{ref} [get]
func (h *ImageHandler) GetImage(c *gin.Context) {
	ref := strings.TrimPrefix(c.Param("ref"), "/")

	body, contentType, err := h.files.ReadImage(c.Request.Context(), ref)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer body.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
