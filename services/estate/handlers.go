// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package estate

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/truevalueai/truevalue/services/estate/agent"
	"github.com/truevalueai/truevalue/services/llm"
)

// ErrorResponse is the error envelope for all estate endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// maxToolDescriptionLen truncates descriptions in the discovery listing.
const maxToolDescriptionLen = 120

// Handlers serves the estate HTTP API.
//
// Thread Safety: safe for concurrent use; all state lives in the engine.
type Handlers struct {
	engine *Engine
}

// NewHandlers creates the HTTP handlers for an engine.
func NewHandlers(engine *Engine) *Handlers {
	if engine == nil {
		panic("estate: nil engine")
	}
	return &Handlers{engine: engine}
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Header("X-Request-ID", id)
	return id
}

// HandleQuery handles POST /v1/estate/query.
//
// # Description
//
//	Runs a natural-language investment query through the orchestration
//	loop and returns the answer with tool and token accounting.
//
// Response:
//
//	200 OK: QueryResponse
//	400 Bad Request: missing or empty query
//	502 Bad Gateway: model rejected the request (auth, bad config)
//	503 Service Unavailable: model transiently unavailable or the query
//	    exceeded its iteration budget (both retryable)
func (h *Handlers) HandleQuery(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleQuery")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "request body must be JSON with a non-empty query field",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp, err := h.engine.HandleQuery(c.Request.Context(), req)
	if err != nil {
		h.writeQueryError(c, logger, err)
		return
	}

	logger.Info("query answered",
		slog.Any("tools_used", resp.ToolsUsed),
		slog.Int("tokens", resp.Usage.Total()),
		slog.Int64("elapsed_ms", resp.ElapsedMS),
	)
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) writeQueryError(c *gin.Context, logger *slog.Logger, err error) {
	var modelErr *llm.ModelError
	switch {
	case errors.Is(err, ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "EMPTY_QUERY",
		})

	case errors.Is(err, agent.ErrIterationCeiling):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "query required more tool iterations than allowed; try a more specific question",
			Code:  "ITERATION_CEILING",
		})

	case errors.As(err, &modelErr):
		logger.Error("model failure", slog.Int("status", modelErr.Status), slog.Bool("transient", modelErr.Transient))
		if modelErr.Transient {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "model temporarily unavailable; retry shortly",
				Code:  "MODEL_UNAVAILABLE",
			})
		} else {
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Error: "model rejected the request",
				Code:  "MODEL_ERROR",
			})
		}

	case errors.Is(err, c.Request.Context().Err()):
		// Client went away; nothing useful to send.
		c.Status(499)

	default:
		logger.Error("query failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Code:  "INTERNAL",
		})
	}
}

// HandleListTools handles GET /v1/estate/tools.
func (h *Handlers) HandleListTools(c *gin.Context) {
	defs := h.engine.Registry().Definitions()
	toolsOut := make([]gin.H, 0, len(defs))
	for _, d := range defs {
		desc := d.Function.Description
		if len(desc) > maxToolDescriptionLen {
			desc = desc[:maxToolDescriptionLen] + "..."
		}
		toolsOut = append(toolsOut, gin.H{
			"name":        d.Function.Name,
			"description": desc,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(defs),
		"tools": toolsOut,
	})
}

// HandleZonePipeline handles GET /v1/estate/zones/:zone/pipeline.
//
// Response:
//
//	200 OK: pipeline research for the zone
//	404 Not Found: zone has no pipeline research
func (h *Handlers) HandleZonePipeline(c *gin.Context) {
	zone := c.Param("zone")

	profile, known := h.engine.Zones().Lookup(zone)
	if !known || profile.Pipeline == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no supply pipeline research for zone " + zone,
			Code:  "ZONE_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"zone":           profile.DisplayName,
		"slug":           profile.Slug,
		"risk_level":     profile.SupplyRisk,
		"risk_year":      profile.Pipeline.RiskYear,
		"units_pipeline": profile.Pipeline.UnitsPipeline,
		"current_supply": profile.Pipeline.CurrentSupply,
		"notes":          profile.Pipeline.Notes,
		"recommendation": profile.Pipeline.Recommendation,
	})
}

// HandleHealth handles GET /v1/estate/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"active_sessions": h.engine.ActiveSessions(),
	})
}

// HandleReady handles GET /v1/estate/ready. The engine is fully wired at
// construction, so readiness tracks process liveness.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ready": true})
}
