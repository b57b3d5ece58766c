package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/practice-backend-go/internal/analysis"
	"github.com/jengzang/practice-backend-go/internal/models"
	"github.com/jengzang/practice-backend-go/internal/service"
	"github.com/jengzang/practice-backend-go/pkg/response"
)

// AnalysisHandler handles recording analysis requests
type AnalysisHandler struct {
	service        *service.AnalysisService
	maxUploadBytes int64
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *service.AnalysisService, maxUploadBytes int64) *AnalysisHandler {
	return &AnalysisHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Analyze handles POST /api/v1/analysis
//
// Multipart form fields:
//   - audio: the recording (required)
//   - totalDuration: recording length in seconds (required, > 0)
//   - targetRatio: practice ratio for recordings without features (optional)
//   - windows: JSON array of per-window acoustic features (optional)
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, "Recording too large", err)
			return
		}
		response.Error(c, http.StatusBadRequest, "Missing audio recording", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, "Failed to read audio recording", err)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(c, "Failed to read audio recording", err)
		return
	}

	req := analysis.Request{Audio: audio}

	req.TotalDuration, err = strconv.ParseFloat(c.PostForm("totalDuration"), 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid totalDuration", err)
		return
	}

	if raw := c.PostForm("targetRatio"); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid targetRatio", err)
			return
		}
		req.TargetRatio = &ratio
	}

	if raw := c.PostForm("windows"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Windows); err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid windows", err)
			return
		}
	}

	result, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		if models.IsValidation(err) {
			response.Error(c, http.StatusBadRequest, "Invalid analysis request", err)
			return
		}
		response.InternalError(c, "Analysis failed", err)
		return
	}

	response.Success(c, result)
}
