package routes

import (
	"timerdeck/internal/controller"
	"timerdeck/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Router wires the timer API. Mutating routes require a JWT when jwtSecret is set.
func Router(h *controller.Handler, jwtSecret string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())

	// Health for load balancers and K8s liveness checks
	router.GET("/health", controller.Health)
	router.GET("/ready", h.Ready)

	// Public: reads
	router.GET("/timers", h.GetTimers)
	router.GET("/timers/stream", h.Stream)
	router.GET("/timers/:id", h.GetTimer)
	router.GET("/notifications", h.ListNotifications)
	router.GET("/alert.wav", h.AlertSound)

	api := router.Group("")
	if jwtSecret != "" {
		api.Use(middleware.AuthMiddleware(jwtSecret))
	}
	{
		api.POST("/timers", h.CreateTimer)
		api.PUT("/timers/:id", h.UpdateTimer)
		api.DELETE("/timers/:id", h.DeleteTimer)
		api.POST("/timers/:id/toggle", h.ToggleTimer)
		api.POST("/timers/:id/restart", h.RestartTimer)
		api.POST("/timers/:id/dismiss", h.DismissAlert)
		api.POST("/notifications/:handle/dismiss", h.DismissNotification)
		api.PUT("/viewport", h.SetViewport)
	}

	return router
}
