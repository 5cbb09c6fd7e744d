package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/service"
)

// respondError maps service errors to HTTP statuses. Unknown errors are
// logged and reported as 500 with the given prefix.
func respondError(c *gin.Context, prefix string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrCompanyNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, service.ErrStorageNotConfigured):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.CtxError(c.Request.Context(), "%s: %v", prefix, err)
	}
	c.JSON(status, gin.H{
		"error": prefix + ": " + err.Error(),
	})
}
