package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/practice-backend-go/internal/service"
	"github.com/jengzang/practice-backend-go/pkg/response"
)

// SyncHandler handles sync and ranking requests
type SyncHandler struct {
	service *service.SyncService
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(service *service.SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// Sync handles POST /api/v1/sync
func (h *SyncHandler) Sync(c *gin.Context) {
	result, err := h.service.Sync(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Sync failed", err)
		return
	}

	response.Success(c, result)
}

// GetTodayRankings handles GET /api/v1/rankings/today
func (h *SyncHandler) GetTodayRankings(c *gin.Context) {
	rankings, err := h.service.TodayRankings(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusBadGateway, "Failed to get rankings", err)
		return
	}

	response.Success(c, gin.H{
		"data":    rankings,
		"total":   len(rankings),
		"offline": !h.service.Enabled(),
	})
}
