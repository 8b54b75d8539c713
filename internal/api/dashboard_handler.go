package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"
	"truetestify/backend/internal/domain"
	"truetestify/backend/internal/repository"
	"truetestify/backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DashboardHandler serves the authenticated moderation endpoints. Every
// query is scoped to the business ID carried in the caller's token.
type DashboardHandler struct {
	reviewService service.ReviewService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(reviewService service.ReviewService) *DashboardHandler {
	return &DashboardHandler{reviewService: reviewService}
}

// --- Request/Response Structs ---

// ReviewResponse is the dashboard view of a review.
type ReviewResponse struct {
	ID              string            `json:"id"`
	BusinessID      string            `json:"businessId"`
	Type            string            `json:"type"`
	Status          string            `json:"status"`
	TextStatus      string            `json:"textStatus,omitempty"`
	Title           string            `json:"title,omitempty"`
	BodyText        string            `json:"bodyText,omitempty"`
	Rating          int               `json:"rating,omitempty"`
	ReviewerName    string            `json:"reviewerName,omitempty"`
	ReviewerContact map[string]string `json:"reviewerContact,omitempty"`
	Source          string            `json:"source,omitempty"`
	ViewsCount      int64             `json:"viewsCount"`
	SubmittedAt     time.Time         `json:"submittedAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	MediaURL        string            `json:"mediaUrl,omitempty"`
}

type UpdateReviewRequest struct {
	Title           *string           `json:"title"`
	BodyText        *string           `json:"bodyText"`
	Rating          *int              `json:"rating"`
	ReviewerName    *string           `json:"reviewerName"`
	ReviewerContact map[string]string `json:"reviewerContact"`
}

type ModerateRequest struct {
	Action string `json:"action" binding:"required"`
	Type   string `json:"type"`
}

// --- Handler Methods ---

// GetReview godoc
// @Summary Get one review
// @Description Returns the review with its media playback URL, scoped to
// @Description the caller's business.
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 200 {object} ReviewResponse "Review details"
// @Failure 404 {object} gin.H "Not found (including cross-tenant)"
// @Router /reviews/{id} [get]
func (h *DashboardHandler) GetReview(c *gin.Context) {
	businessID, reviewID, ok := h.scopedIDs(c)
	if !ok {
		return
	}

	result, err := h.reviewService.GetReview(c.Request.Context(), businessID, reviewID)
	if err != nil {
		handleDashboardError(c, err)
		return
	}

	resp := MapReviewToResponse(&result.Review)
	resp.MediaURL = result.MediaURL
	c.JSON(http.StatusOK, resp)
}

// ListReviews godoc
// @Summary List a business's reviews
// @Description Lists reviews newest first, optionally filtered by status.
// @Description The path tenant ID must match the caller's own business.
// @Tags Reviews
// @Produce json
// @Param tenantId path string true "Business ID"
// @Param status query string false "Status filter"
// @Success 200 {array} ReviewResponse "Reviews"
// @Failure 404 {object} gin.H "Tenant mismatch"
// @Router /reviews/tenant/{tenantId} [get]
func (h *DashboardHandler) ListReviews(c *gin.Context) {
	businessID, err := getBusinessIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve business from token")
		return
	}

	// A foreign tenant ID gets the same 404 a nonexistent one would.
	if c.Param("tenantId") != businessID.Hex() {
		abortWithError(c, http.StatusNotFound, service.ErrBusinessNotFound.Error())
		return
	}

	reviews, err := h.reviewService.ListByBusiness(c.Request.Context(), businessID, c.Query("status"))
	if err != nil {
		handleDashboardError(c, err)
		return
	}

	resp := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		resp[i] = MapReviewToResponse(&reviews[i])
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateReview godoc
// @Summary Edit a review's content fields
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param patch body UpdateReviewRequest true "Fields to update"
// @Success 200 {object} ReviewResponse "Updated review"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Not found"
// @Router /reviews/{id} [patch]
func (h *DashboardHandler) UpdateReview(c *gin.Context) {
	businessID, reviewID, ok := h.scopedIDs(c)
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	patch := repository.ReviewPatch{
		Title:           req.Title,
		BodyText:        req.BodyText,
		Rating:          req.Rating,
		ReviewerName:    req.ReviewerName,
		ReviewerContact: req.ReviewerContact,
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), businessID, reviewID, patch)
	if err != nil {
		handleDashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapReviewToResponse(review))
}

// Moderate godoc
// @Summary Apply a moderation action to a review
// @Description action is one of APPROVE, REJECT, HIDE, DELETE; type selects
// @Description MEDIA (default) or TEXT.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID"
// @Param decision body ModerateRequest true "Moderation decision"
// @Success 200 {object} ReviewResponse "Review after the action"
// @Failure 400 {object} gin.H "Unknown action or target"
// @Failure 404 {object} gin.H "Not found"
// @Router /reviews/{id}/moderate [patch]
func (h *DashboardHandler) Moderate(c *gin.Context) {
	businessID, reviewID, ok := h.scopedIDs(c)
	if !ok {
		return
	}

	var req ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	action, err := domain.ParseModerationAction(req.Action)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	target, err := domain.ParseModerationTarget(req.Type)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	review, err := h.reviewService.Moderate(c.Request.Context(), businessID, reviewID, action, target)
	if err != nil {
		handleDashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapReviewToResponse(review))
}

// DeleteReview godoc
// @Summary Soft delete a review
// @Tags Reviews
// @Produce json
// @Param id path string true "Review ID"
// @Success 204 "Review hidden from all reads"
// @Failure 404 {object} gin.H "Not found"
// @Router /reviews/{id} [delete]
func (h *DashboardHandler) DeleteReview(c *gin.Context) {
	businessID, reviewID, ok := h.scopedIDs(c)
	if !ok {
		return
	}

	if err := h.reviewService.SoftDeleteReview(c.Request.Context(), businessID, reviewID); err != nil {
		handleDashboardError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// scopedIDs resolves the caller's business ID and the :id path parameter.
// A malformed review ID is indistinguishable from a missing one.
func (h *DashboardHandler) scopedIDs(c *gin.Context) (businessID, reviewID primitive.ObjectID, ok bool) {
	businessID, err := getBusinessIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve business from token")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}

	reviewID, err = primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, service.ErrReviewNotFound.Error())
		return primitive.NilObjectID, primitive.NilObjectID, false
	}

	return businessID, reviewID, true
}

func handleDashboardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrReviewNotFound), errors.Is(err, service.ErrBusinessNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// MapReviewToResponse converts a domain Review to its dashboard DTO.
func MapReviewToResponse(review *domain.Review) ReviewResponse {
	if review == nil {
		return ReviewResponse{}
	}
	return ReviewResponse{
		ID:              review.ID.Hex(),
		BusinessID:      review.BusinessID.Hex(),
		Type:            string(review.Type),
		Status:          string(review.Status),
		TextStatus:      string(review.TextStatus),
		Title:           review.Title,
		BodyText:        review.BodyText,
		Rating:          review.Rating,
		ReviewerName:    review.ReviewerName,
		ReviewerContact: review.ReviewerContact,
		Source:          review.Source,
		ViewsCount:      review.ViewsCount,
		SubmittedAt:     review.SubmittedAt,
		UpdatedAt:       review.UpdatedAt,
	}
}
