package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"podcast-backend/internal/shared/middleware"
	"podcast-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	api := router.Group("/api")
	{
		api.GET("/health", healthCheckHandler(c))

		setupEpisodeRoutes(api, c)
		setupStreamRoutes(api, c)
	}

	return router
}

func setupEpisodeRoutes(api *gin.RouterGroup, c *container.Container) {
	episodes := api.Group("/episodes")
	{
		episodes.GET("", c.EpisodeHandler.List)
		episodes.POST("", c.EpisodeHandler.Create)
		episodes.POST("/sync", c.EpisodeHandler.Sync)
		episodes.GET("/:id", c.EpisodeHandler.Get)
		episodes.PUT("/:id", c.EpisodeHandler.Update)
		episodes.DELETE("/:id", c.EpisodeHandler.Delete)
		episodes.GET("/:id/stream", c.StreamHandler.StreamInfo)
	}
}

func setupStreamRoutes(api *gin.RouterGroup, c *container.Container) {
	api.GET("/stream/:filename", c.StreamHandler.Stream)
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		remoteStore := "disabled"
		if c.GitHub.Enabled() {
			remoteStore = "configured"
		}

		if err := c.Cache.Ping(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status":       "degraded",
				"cache":        err.Error(),
				"remote_store": remoteStore,
			})
			return
		}

		ctx.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"cache":        "ok",
			"remote_store": remoteStore,
		})
	}
}
