package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/urbanthread/loyalty/internal/config"
	"github.com/urbanthread/loyalty/internal/service"
)

// NewRouter builds the API router
func NewRouter(svc *service.LoyaltyService, cfg *config.Config) *gin.Engine {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID())

	h := NewLoyaltyHandler(svc)

	api := router.Group("/api/v1")
	{
		api.GET("/customers/:email", h.GetCustomer)
		api.GET("/customers/:email/history", h.GetHistory)
		api.GET("/rewards", h.ListRewards)

		writes := api.Group("")
		writes.Use(WriteRateLimit(cfg.Server.WriteRPS))
		{
			writes.POST("/purchases", h.CreatePurchase)
			writes.POST("/redemptions", h.CreateRedemption)
			writes.POST("/adjustments", h.CreateAdjustment)
		}
	}

	return router
}
