// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luxfi/adxgateway/orchestrator"
)

// adRequestParams mirrors the query/form parameters an ad call arrives
// with, scoped to the fields orchestrator.AdRequest actually carries.
type adRequestParams struct {
	PlacementID string `form:"placementid" binding:"required" json:"placementid"`
	ContentID   string `form:"contentid" json:"contentid"`
	DeviceID    string `form:"deviceid" json:"deviceid"`
	UserID      string `form:"userid" json:"userid"`
	Width       int    `form:"w" json:"w"`
	Height      int    `form:"h" json:"h"`

	Lat  float64 `form:"lat" json:"lat"`
	Long float64 `form:"long" json:"long"`

	COPPA       int    `form:"coppa" json:"coppa"`
	GDPR        int    `form:"gdpr" json:"gdpr"`
	GDPRConsent string `form:"gdpr_consent" json:"gdpr_consent"`
	USPrivacy   string `form:"us_privacy" json:"us_privacy"`

	Protocol string `form:"protocol" json:"protocol"`
}

func newAdServingRouter(orch *orchestrator.Orchestrator, logger *zap.Logger) *gin.Engine {
	if *env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginZapLogger(logger))

	r.GET("/vast", serveAd(orch, "vast"))
	r.POST("/vast", serveAd(orch, "vast"))
	r.GET("/openrtb", serveAd(orch, "openrtb"))
	r.POST("/openrtb", serveAd(orch, "openrtb"))
	r.POST("/track/:event", trackEvent(orch))

	return r
}

func serveAd(orch *orchestrator.Orchestrator, protocol string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p adRequestParams
		if err := c.ShouldBind(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		req := orchestrator.AdRequest{
			RequestID:   uuid.New().String(),
			TimestampMs: time.Now().UnixMilli(),
			UserID:      p.UserID,
			DeviceID:    p.DeviceID,
			IPAddress:   c.ClientIP(),
			UserAgent:   c.GetHeader("User-Agent"),
			Latitude:    p.Lat,
			Longitude:   p.Long,
			Width:       p.Width,
			Height:      p.Height,
			PlacementID: p.PlacementID,
			ContentID:   p.ContentID,
			COPPA:       p.COPPA == 1,
			GDPR:        p.GDPR == 1,
			GDPRConsent: p.GDPRConsent,
			USPrivacy:   p.USPrivacy,
			Protocol:    protocol,
		}

		resp := orch.Serve(c.Request.Context(), req)
		if !resp.Success {
			c.JSON(statusForErrorCode(resp.ErrorCode), resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func trackEvent(orch *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		event := c.Param("event")
		var resp orchestrator.AdResponse
		if err := c.ShouldBindJSON(&resp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := orch.Track(c.Request.Context(), event, resp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func statusForErrorCode(code string) int {
	switch code {
	case "InvalidAdRequest":
		return http.StatusBadRequest
	case "NoHandler":
		return http.StatusNotFound
	case "FrequencyCapExceeded", "BudgetExceeded":
		return http.StatusTooManyRequests
	case "CircuitOpen":
		return http.StatusServiceUnavailable
	case "ChainTimeout", "TransportTimeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func ginZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
