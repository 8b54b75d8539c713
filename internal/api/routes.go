package api

import (
	"net/http"
	"truetestify/backend/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	reviewService service.ReviewService,
	uploadService service.UploadService,
	feedService service.FeedService,
) {

	authHandler := NewAuthHandler(authService)
	reviewHandler := NewReviewHandler(reviewService, uploadService)
	feedHandler := NewFeedHandler(feedService)
	dashboardHandler := NewDashboardHandler(reviewService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// --- Public Routes ---
	// Submission and the feed are keyed by business slug; no auth.
	public := router.Group("/api/public/:slug")
	{
		public.POST("/reviews", reviewHandler.SubmitReview)
		public.POST("/reviews/:reviewId/chunk", reviewHandler.UploadChunk)
		public.POST("/reviews/:reviewId/finalize", reviewHandler.FinalizeUpload)
		public.GET("/feed", feedHandler.GetFeed)
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	// --- Protected Routes ---
	// Every handler below scopes its queries by the token's business ID.
	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			businessID, err := getBusinessIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get business ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "businessId": businessID.Hex()})
		})

		reviewGroup := protected.Group("/reviews")
		{
			// GET /api/v1/reviews/tenant/{tenantId} - list, must match the token's business
			reviewGroup.GET("/tenant/:tenantId", dashboardHandler.ListReviews)

			reviewGroup.GET("/:id", dashboardHandler.GetReview)
			reviewGroup.PATCH("/:id", dashboardHandler.UpdateReview)
			reviewGroup.PATCH("/:id/moderate", dashboardHandler.Moderate)
			reviewGroup.DELETE("/:id", dashboardHandler.DeleteReview)
		}
	}
}
