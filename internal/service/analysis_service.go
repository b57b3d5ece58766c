package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jengzang/practice-backend-go/internal/analysis"
	"github.com/jengzang/practice-backend-go/internal/logging"
	"github.com/jengzang/practice-backend-go/internal/models"
)

// AnalysisService runs recordings through the analysis engine
type AnalysisService struct {
	engine *analysis.Engine
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(engine *analysis.Engine) *AnalysisService {
	return &AnalysisService{engine: engine}
}

// Analyze classifies one recording and returns its timeline
func (s *AnalysisService) Analyze(ctx context.Context, req analysis.Request) (*models.AnalysisResult, error) {
	started := time.Now()
	result, err := s.engine.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	logging.GetLogger().InfoContext(ctx, "recording analysed",
		slog.String("mode", result.Mode),
		slog.Int("audio_bytes", len(req.Audio)),
		slog.Int("windows", len(req.Windows)),
		slog.Float64("total_duration", result.TotalDuration),
		slog.Float64("net_practice_time", result.NetPracticeTime),
		slog.Int("segments", len(result.Segments)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return &result, nil
}
