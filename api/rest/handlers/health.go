package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kotsworld/mailsync/services/ingestion"
)

type StatusProvider interface {
	Status() ingestion.Status
}

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status returns the last result of each pipeline run by this process
func Status(provider StatusProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, provider.Status())
	}
}
