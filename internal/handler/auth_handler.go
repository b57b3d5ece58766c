package handler

import (
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/practice-backend-go/internal/service"
	"github.com/jengzang/practice-backend-go/pkg/response"
)

// AuthHandler issues device tokens
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

type tokenRequest struct {
	PairingCode string `json:"pairing_code"`
}

// IssueToken handles POST /api/v1/auth/token
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var body tokenRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, "Invalid token request", err)
			return
		}
	}

	// RemoteIP is the socket peer; forwarded headers are not trusted here.
	ip := net.ParseIP(c.RemoteIP())
	token, expires, err := h.service.IssueToken(c.Request.Context(), service.TokenRequest{
		PairingCode: body.PairingCode,
		Loopback:    ip != nil && ip.IsLoopback(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthDisabled):
			response.Error(c, http.StatusNotImplemented, "Token authentication is disabled", err)
		case errors.Is(err, service.ErrPairingRejected):
			response.Error(c, http.StatusForbidden, "Pairing code required", err)
		default:
			response.InternalError(c, "Failed to issue token", err)
		}
		return
	}

	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expires,
	})
}
