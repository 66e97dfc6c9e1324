package routes

import (
	"net/http"
	"time"

	"reelfeed/handlers"
	"reelfeed/middleware"
	"reelfeed/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterFeedRoutes registers the feed endpoints.
func RegisterFeedRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/feed")
	{
		api.Use(middleware.SessionMiddleware())
		if hb.ViewerAuth != nil {
			api.Use(hb.ViewerAuth)
		}
		api.GET("", hb.GetFeedHandler)
		api.GET("/cached", hb.GetCachedFeedHandler)
		api.POST("/prime", hb.PrimeFeedHandler)
		api.POST("/seen", hb.RecordSeenHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", utils.SessionHeader},
		ExposeHeaders: []string{"Content-Length", utils.SessionHeader},
		MaxAge:        12 * time.Hour,
	}))

	RegisterFeedRoutes(r, hb)
	RegisterHealthRoute(r)
}
