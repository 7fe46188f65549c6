package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/controller"
	"github.com/tagreview/tagreview-backend/internal/middleware"
)

type Router struct {
	flowController *controller.ReviewFlowController
	feedController *controller.FeedController
	config         *config.Config
}

func NewRouter(
	flowController *controller.ReviewFlowController,
	feedController *controller.FeedController,
	cfg *config.Config,
) *Router {
	return &Router{
		flowController: flowController,
		feedController: feedController,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "TagReview API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/flow/sessions")
		{
			sessions.POST("", r.flowController.StartSession)
			sessions.GET("/:id", r.flowController.GetSession)
			sessions.POST("/:id/rating", r.flowController.SelectRating)
			sessions.POST("/:id/issues", r.flowController.ToggleIssue)
			sessions.POST("/:id/feedback", r.flowController.SubmitFeedback)
			sessions.POST("/:id/google-redirect", r.flowController.OpenGoogleReview)
			sessions.POST("/:id/google-redirect/manual", r.flowController.ConfirmManualRedirect)
			sessions.POST("/:id/reward", r.flowController.ClaimReward)
		}

		companies := v1.Group("/companies")
		{
			companies.GET("/:id/feed", r.feedController.Subscribe)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Request-ID, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
