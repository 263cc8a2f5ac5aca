package http

import (
	"errors"
	"net/http"
	"strconv"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps an error to its HTTP status and stable code. Storage error
// text never reaches the client.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, entity.ErrInvalid):
		return http.StatusBadRequest, "invalid", err.Error()
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, entity.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", err.Error()
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict, "conflict", "Conflicting update, please retry"
	case errors.Is(err, entity.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable", "Storage temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal", "Internal server error"
	}
}

func respondError(c *gin.Context, log *logger.Logger, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "invalid"})
}

// pagination reads pageIndex and pageSize; range checks belong to the usecase.
func pagination(c *gin.Context, defaultPageSize int) (int, int, bool) {
	pageIndex, err := strconv.Atoi(c.DefaultQuery("pageIndex", "0"))
	if err != nil {
		badRequest(c, "pageIndex must be an integer")
		return 0, 0, false
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))
	if err != nil {
		badRequest(c, "pageSize must be an integer")
		return 0, 0, false
	}
	return pageIndex, pageSize, true
}
