package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/practice-backend-go/internal/models"
	"github.com/jengzang/practice-backend-go/internal/service"
	"github.com/jengzang/practice-backend-go/pkg/response"
)

// SessionHandler handles HTTP requests for local practice sessions
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// CreateSession handles POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var session models.PracticeSession
	if err := c.ShouldBindJSON(&session); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid session body", err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), &session)
	if err != nil {
		if models.IsValidation(err) {
			response.Error(c, http.StatusBadRequest, "Invalid session", err)
			return
		}
		response.InternalError(c, "Failed to save session", err)
		return
	}

	response.Created(c, created)
}

// GetSessions handles GET /api/v1/sessions[?piece_id=]
func (h *SessionHandler) GetSessions(c *gin.Context) {
	sessions, err := h.service.List(c.Request.Context(), c.Query("piece_id"))
	if err != nil {
		response.InternalError(c, "Failed to get sessions", err)
		return
	}

	response.Success(c, gin.H{
		"data":  sessions,
		"total": len(sessions),
	})
}

// GetUnsynced handles GET /api/v1/sessions/unsynced
func (h *SessionHandler) GetUnsynced(c *gin.Context) {
	sessions, err := h.service.Unsynced(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to get unsynced sessions", err)
		return
	}

	response.Success(c, gin.H{
		"data":  sessions,
		"total": len(sessions),
	})
}

// GetSessionByID handles GET /api/v1/sessions/:id
func (h *SessionHandler) GetSessionByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid session ID", err)
		return
	}

	session, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, "Failed to get session", err)
		return
	}

	if session == nil {
		response.Error(c, http.StatusNotFound, "Session not found", nil)
		return
	}

	response.Success(c, session)
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid session ID", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if models.IsNotFound(err) {
			response.Error(c, http.StatusNotFound, "Session not found", err)
			return
		}
		response.InternalError(c, "Failed to delete session", err)
		return
	}

	response.Success(c, gin.H{"id": id})
}

// ClearSessions handles DELETE /api/v1/sessions
func (h *SessionHandler) ClearSessions(c *gin.Context) {
	if err := h.service.ClearAll(c.Request.Context()); err != nil {
		response.InternalError(c, "Failed to clear sessions", err)
		return
	}

	response.Success(c, nil)
}

// UncompleteToday handles DELETE /api/v1/pieces/:piece_id/sessions/today
func (h *SessionHandler) UncompleteToday(c *gin.Context) {
	deleted, err := h.service.UncompleteToday(c.Request.Context(), c.Param("piece_id"))
	if err != nil {
		if models.IsValidation(err) {
			response.Error(c, http.StatusBadRequest, "Invalid piece ID", err)
			return
		}
		response.InternalError(c, "Failed to delete sessions", err)
		return
	}

	response.Success(c, gin.H{"deleted": deleted})
}

// GetStats handles GET /api/v1/sessions/stats
func (h *SessionHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to get stats", err)
		return
	}

	response.Success(c, stats)
}

// GetToday handles GET /api/v1/sessions/today
func (h *SessionHandler) GetToday(c *gin.Context) {
	totals, err := h.service.Today(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to get today's totals", err)
		return
	}

	response.Success(c, totals)
}
