package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/kotsworld/mailsync/api/middleware"
	"github.com/kotsworld/mailsync/api/rest/handlers"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/services"
	"github.com/kotsworld/mailsync/services/ingestion"
)

// RegisterRoutes sets up the health and status endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)

	status := r.Group("/status")
	status.Use(middleware.CustomContextMiddleware(ingestion.AppSource))
	status.Use(middleware.TracingMiddleware())
	status.GET("", handlers.Status(s.IngestionService))
}
