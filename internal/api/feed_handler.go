package api

import (
	"errors"
	"net/http"
	"truetestify/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// FeedHandler serves the public, read-only widget feed.
type FeedHandler struct {
	feedService service.FeedService
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(feedService service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// GetFeed godoc
// @Summary Public review feed for a business
// @Description Returns the approved reviews of a business, newest first.
// @Tags Public
// @Produce json
// @Param slug path string true "Business slug"
// @Success 200 {array} service.FeedItem "Ordered feed"
// @Failure 404 {object} gin.H "Unknown business"
// @Router /public/{slug}/feed [get]
func (h *FeedHandler) GetFeed(c *gin.Context) {
	slug := c.Param("slug")

	items, err := h.feedService.PublicFeed(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, service.ErrBusinessNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to load feed")
		}
		return
	}

	c.JSON(http.StatusOK, items)
}
