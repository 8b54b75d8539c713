package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"truetestify/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ReviewHandler serves the public submission endpoints: single-shot
// review submission plus the chunked upload protocol.
type ReviewHandler struct {
	reviewService service.ReviewService
	uploadService service.UploadService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService service.ReviewService, uploadService service.UploadService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		uploadService: uploadService,
	}
}

// --- Request/Response Structs ---

// SubmitReviewRequest is bound from the multipart form (or JSON body for
// text-only submissions). The media file itself rides alongside as the
// optional "file" part.
type SubmitReviewRequest struct {
	Type           string `form:"type" json:"type" binding:"required"`
	Title          string `form:"title" json:"title"`
	BodyText       string `form:"bodyText" json:"bodyText"`
	Rating         int    `form:"rating" json:"rating"`
	ReviewerName   string `form:"reviewerName" json:"reviewerName"`
	ReviewerEmail  string `form:"reviewerEmail" json:"reviewerEmail"`
	ReviewerPhone  string `form:"reviewerPhone" json:"reviewerPhone"`
	ConsentChecked bool   `form:"consentChecked" json:"consentChecked"`
	Source         string `form:"source" json:"source"`
}

type SubmitReviewResponse struct {
	ReviewID string `json:"reviewId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

type ChunkResponse struct {
	ChunkIndex int    `json:"chunkIndex"`
	Status     string `json:"status"`
}

type FinalizeResponse struct {
	ReviewID string `json:"reviewId"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// --- Handler Methods ---

// SubmitReview godoc
// @Summary Submit a review to a business
// @Description Creates a review. Media types may carry the file inline or
// @Description omit it and stream chunks afterwards.
// @Tags Public
// @Accept mpfd
// @Produce json
// @Param slug path string true "Business slug"
// @Success 201 {object} SubmitReviewResponse "Review accepted"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Unknown business"
// @Router /public/{slug}/reviews [post]
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	slug := c.Param("slug")

	var req SubmitReviewRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	input := service.SubmitReviewInput{
		Type:           req.Type,
		Title:          req.Title,
		BodyText:       req.BodyText,
		Rating:         req.Rating,
		ReviewerName:   req.ReviewerName,
		ConsentChecked: req.ConsentChecked,
		Source:         req.Source,
	}
	if req.ReviewerEmail != "" || req.ReviewerPhone != "" {
		input.ReviewerContact = map[string]string{}
		if req.ReviewerEmail != "" {
			input.ReviewerContact["email"] = req.ReviewerEmail
		}
		if req.ReviewerPhone != "" {
			input.ReviewerContact["phone"] = req.ReviewerPhone
		}
	}

	file, closeFile, err := openOptionalFormFile(c, "file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Failed to read uploaded file: %v", err))
		return
	}
	if closeFile != nil {
		defer closeFile()
	}

	result, err := h.reviewService.Submit(c.Request.Context(), slug, input, file)
	if err != nil {
		handleSubmissionError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusCreated, SubmitReviewResponse{
		ReviewID: result.ReviewID,
		Status:   string(result.Status),
		Message:  result.Message,
	})
}

// UploadChunk godoc
// @Summary Upload one chunk of a review's media
// @Description Stores a single chunk. Chunks may arrive in any order and
// @Description re-sending an index overwrites the previous bytes.
// @Tags Public
// @Accept mpfd
// @Produce json
// @Param slug path string true "Business slug"
// @Param reviewId path string true "Review ID"
// @Success 200 {object} ChunkResponse "Chunk stored"
// @Failure 400 {object} gin.H "Invalid chunk or review"
// @Router /public/{slug}/reviews/{reviewId}/chunk [post]
func (h *ReviewHandler) UploadChunk(c *gin.Context) {
	slug := c.Param("slug")
	reviewID := c.Param("reviewId")

	indexStr := c.PostForm("chunkIndex")
	if indexStr == "" {
		indexStr = c.Query("chunkIndex")
	}
	chunkIndex, err := strconv.Atoi(indexStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "chunkIndex must be an integer")
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "multipart field 'chunk' is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Failed to read chunk: %v", err))
		return
	}
	defer file.Close()

	result, err := h.uploadService.UploadChunk(c.Request.Context(), slug, reviewID, chunkIndex, service.SubmittedFile{
		Reader:      file,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		// The chunk protocol reports every client-side problem, unknown
		// review included, as a plain 400 to keep the uploader loop simple.
		handleSubmissionError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, ChunkResponse{ChunkIndex: result.ChunkIndex, Status: result.Status})
}

// FinalizeUpload godoc
// @Summary Finalize a chunked upload
// @Description Assembles the uploaded chunks into the review's media object
// @Description and queues transcoding.
// @Tags Public
// @Produce json
// @Param slug path string true "Business slug"
// @Param reviewId path string true "Review ID"
// @Param type query string true "Declared review type (video or audio)"
// @Success 200 {object} FinalizeResponse "Upload finalized"
// @Failure 400 {object} gin.H "Invalid finalize request"
// @Router /public/{slug}/reviews/{reviewId}/finalize [post]
func (h *ReviewHandler) FinalizeUpload(c *gin.Context) {
	slug := c.Param("slug")
	reviewID := c.Param("reviewId")
	declaredType := c.Query("type")

	result, err := h.uploadService.FinalizeUpload(c.Request.Context(), slug, reviewID, declaredType)
	if err != nil {
		handleSubmissionError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, FinalizeResponse{
		ReviewID: result.ReviewID,
		Status:   result.Status,
		Message:  result.Message,
	})
}

// openOptionalFormFile opens the named multipart file if the request
// carries one. A plain absent file is not an error.
func openOptionalFormFile(c *gin.Context, field string) (*service.SubmittedFile, func(), error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.SubmittedFile{
		Reader:      file,
		Size:        fileHeader.Size,
		ContentType: contentTypeOf(fileHeader),
	}, func() { file.Close() }, nil
}

func contentTypeOf(fileHeader *multipart.FileHeader) string {
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// handleSubmissionError maps service errors from the public endpoints.
// notFoundStatus lets the chunk protocol downgrade not-found to 400.
func handleSubmissionError(c *gin.Context, err error, notFoundStatus int) {
	switch {
	case errors.Is(err, service.ErrValidation):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrBusinessNotFound), errors.Is(err, service.ErrReviewNotFound):
		abortWithError(c, notFoundStatus, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
