package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/services/ingestion"
)

type staticStatus struct {
	status ingestion.Status
}

func (s staticStatus) Status() ingestion.Status {
	return s.status
}

func newRouter(provider StatusProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", HealthCheck)
	r.GET("/status", Status(provider))
	return r
}

func TestHealthCheck(t *testing.T) {
	// Arrange
	r := newRouter(staticStatus{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	// Act
	r.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestStatus(t *testing.T) {
	// Arrange
	at := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	r := newRouter(staticStatus{status: ingestion.Status{
		Documents: &dto.DocumentSyncResult{
			Pipeline:     "documents",
			StartedAt:    at,
			FinishedAt:   at.Add(time.Minute),
			SyncCounters: dto.SyncCounters{Fetched: 4, New: 2, Skipped: 1, Errors: 1},
		},
	}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)

	// Act
	r.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"documents": {
			"pipeline": "documents",
			"started_at": "2025-01-10T09:00:00Z",
			"finished_at": "2025-01-10T09:01:00Z",
			"fetched": 4,
			"new": 2,
			"skipped": 1,
			"errors": 1
		}
	}`, w.Body.String())
}
