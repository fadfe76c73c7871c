package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// SetupRouter creates and configures the Gin router.
func SetupRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), RequestID())

	// Setup CORS middleware. Default to allow all origins if none are configured.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	router.Use(cors.New(corsConfig))

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/epochs", h.GetEpochs)

	v1.GET("/catalog", h.GetCatalog)
	v1.POST("/catalog/scan", h.ScanCatalog)

	v1.GET("/snapshot", h.GetSnapshot)

	aoi := v1.Group("/aoi")
	aoi.GET("/series", h.GetAOISeries)
	aoi.GET("/all", h.GetAOICatalog)

	v1.GET("/samples", h.GetSampleCatalogs)
	v1.POST("/points/series", h.PostPointSeries)

	v1.GET("/diff", h.GetDiff)

	// Health check.
	router.GET("/health", h.HealthCheck)

	return router
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
