// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package estate

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all estate routes with the router.
//
// Description:
//
//	Registers the /v1/estate/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/estate/query - Run an investment analysis query
//	GET  /v1/estate/tools - List available analysis tools
//	GET  /v1/estate/zones/:zone/pipeline - Supply pipeline research for a zone
//	GET  /v1/estate/health - Health check
//	GET  /v1/estate/ready - Readiness check
//
// Example:
//
//	engine := estate.NewEngine(cfg)
//	handlers := estate.NewHandlers(engine)
//
//	v1 := router.Group("/v1")
//	estate.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	estate := rg.Group("/estate")
	{
		estate.POST("/query", handlers.HandleQuery)
		estate.GET("/tools", handlers.HandleListTools)
		estate.GET("/zones/:zone/pipeline", handlers.HandleZonePipeline)
		estate.GET("/health", handlers.HandleHealth)
		estate.GET("/ready", handlers.HandleReady)
	}
}
