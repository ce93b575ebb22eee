package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func SetupRoutes(router *gin.Engine, handler *Handler, corsOrigins []string) {
	router.Use(cors.New(corsConfig(corsOrigins)))

	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)

		api.GET("/materials", handler.ListMaterials)
		api.POST("/materials", handler.CreateMaterial)
		api.POST("/materials/impact", handler.CalculateImpact)
		api.GET("/materials/:id", handler.GetMaterial)
		api.PUT("/materials/:id", handler.UpdateMaterial)
		api.DELETE("/materials/:id", handler.DeleteMaterial)

		api.GET("/market-prices", handler.ListMarketPrices)
		api.POST("/market-prices/recompute", handler.RecomputeAllPrices)
		api.GET("/market-prices/:materialId", handler.GetMarketPrice)
		api.GET("/market-prices/:materialId/quote", handler.QuotePrice)
		api.POST("/market-prices/:materialId/recompute", handler.RecomputePrice)

		api.POST("/pickups", handler.CreatePickup)
		api.GET("/pickups/:id", handler.GetPickup)
		api.POST("/pickups/:id/claim-requests", handler.RequestClaim)
		api.PATCH("/pickups/:id/status", handler.UpdatePickupStatus)
	}
}
