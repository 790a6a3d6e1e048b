// Package router wires the legal QA routes onto the gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/lexrag/internal/lexrag/handler"
)

// Register registers all HTTP routes.
func Register(engine *gin.Engine, legalHandler *handler.LegalHandler) {
	logger.Info("Registering legal QA routes...")

	engine.GET("/healthz", legalHandler.Healthz)
	engine.GET("/metrics", legalHandler.Metrics)

	v1 := engine.Group("/v1")
	{
		legal := v1.Group("/legal")
		{
			legal.POST("/query", legalHandler.Query)
			legal.POST("/retrieve", legalHandler.Retrieve)
			legal.POST("/attribute", legalHandler.Attribute)
			legal.GET("/stats", legalHandler.Stats)
		}
	}

	logger.Info("HTTP routes registered")
}
