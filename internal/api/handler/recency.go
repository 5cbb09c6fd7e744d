package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perceptionx/collector/internal/repository"
)

// RecencyHandler serves the URL recency cache.
type RecencyHandler struct {
	recency *repository.RecencyRepository
}

// NewRecencyHandler creates a new recency handler.
func NewRecencyHandler(recency *repository.RecencyRepository) *RecencyHandler {
	return &RecencyHandler{recency: recency}
}

// Get handles GET /api/v1/recency?url=.
func (h *RecencyHandler) Get(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'url' is required",
		})
		return
	}
	entry, err := h.recency.Get(c.Request.Context(), url)
	if err != nil {
		respondError(c, "Recency not found", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
