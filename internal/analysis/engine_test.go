package analysis

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/jengzang/practice-backend-go/internal/analysis/timeline"
	"github.com/jengzang/practice-backend-go/internal/models"
)

func newTestEngine() *Engine {
	return NewEngine(EngineConfig{DefaultRatio: 0.7}, rand.New(rand.NewSource(1)))
}

func TestEngineRejectsMissingAudio(t *testing.T) {
	_, err := newTestEngine().Analyze(context.Background(), Request{TotalDuration: 60})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEngineRejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []float64{0, -1} {
		_, err := newTestEngine().Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: d})
		if !models.IsValidation(err) {
			t.Fatalf("duration %v: expected validation error, got %v", d, err)
		}
	}
}

func TestEngineMaxDuration(t *testing.T) {
	engine := NewEngine(EngineConfig{DefaultRatio: 0.7, MaxDuration: time.Hour}, rand.New(rand.NewSource(1)))

	res, err := engine.Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: 3600})
	if err != nil {
		t.Fatalf("recording at the limit was rejected: %v", err)
	}
	if res.TotalDuration != 3600 || res.NetPracticeTime+res.RestTime != 3600 {
		t.Fatalf("unexpected totals %+v", res)
	}

	for _, d := range []float64{3600.5, 1e19, math.Inf(1)} {
		_, err := engine.Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: d})
		if !models.IsValidation(err) {
			t.Fatalf("duration %v: expected validation error, got %v", d, err)
		}
	}
}

func TestEngineMaxDurationIsCappedByTimeline(t *testing.T) {
	engine := NewEngine(EngineConfig{MaxDuration: 48 * time.Hour}, nil)
	_, err := engine.Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: timeline.MaxDuration + 1})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error above the timeline limit, got %v", err)
	}
}

func TestEngineRatioModeUsesDefault(t *testing.T) {
	res, err := newTestEngine().Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: 600})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Mode != timeline.ModeRatio {
		t.Fatalf("expected ratio mode, got %s", res.Mode)
	}
	if res.NetPracticeTime != 420 {
		t.Fatalf("expected 420 s practice from the default ratio, got %v", res.NetPracticeTime)
	}
}

func TestEngineRatioModeUsesRequestRatio(t *testing.T) {
	ratio := 0.25
	res, err := newTestEngine().Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: 400, TargetRatio: &ratio})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.NetPracticeTime != 100 || res.RestTime != 300 {
		t.Fatalf("expected 100/300, got %v/%v", res.NetPracticeTime, res.RestTime)
	}
}

func TestEngineWindowMode(t *testing.T) {
	piano := models.AcousticFeatures{
		DurationSeconds:   2,
		AvgVolumeDB:       -20,
		PitchDetected:     true,
		PitchStability:    0.9,
		HarmonicRatio:     0.8,
		TransientStrength: 0.7,
		SpectralFlatness:  0.2,
		VoiceProbability:  0.1,
	}
	talk := piano
	talk.VoiceProbability = 0.9

	windows := []models.AcousticFeatures{piano, piano, piano, talk, talk}
	res, err := newTestEngine().Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: 10, Windows: windows})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Mode != timeline.ModeWindows {
		t.Fatalf("expected windows mode, got %s", res.Mode)
	}
	if res.NetPracticeTime != 6 || res.RestTime != 4 {
		t.Fatalf("expected 6/4, got %v/%v", res.NetPracticeTime, res.RestTime)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %+v", res.Segments)
	}
}

func TestEngineWindowModeRejectsBadWindow(t *testing.T) {
	windows := []models.AcousticFeatures{{DurationSeconds: 0}}
	_, err := newTestEngine().Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: 10, Windows: windows})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisteredModes(t *testing.T) {
	modes := RegisteredModes()
	if len(modes) != 2 || modes[0] != timeline.ModeRatio || modes[1] != timeline.ModeWindows {
		t.Fatalf("unexpected modes %v", modes)
	}
}

type bareAnalyzer struct{}

func (bareAnalyzer) Name() string { return timeline.ModeRatio }

func (bareAnalyzer) Analyze(context.Context, Request) (models.AnalysisResult, error) {
	return models.AnalysisResult{TotalDuration: 1, RestTime: 1}, nil
}

func TestEngineSetsModeFromAnalyzerName(t *testing.T) {
	saved := analyzerRegistry[timeline.ModeRatio]
	t.Cleanup(func() { RegisterAnalyzer(timeline.ModeRatio, saved) })
	RegisterAnalyzer(timeline.ModeRatio, func(*Engine) Analyzer { return bareAnalyzer{} })

	res, err := newTestEngine().Analyze(context.Background(), Request{Audio: []byte("x"), TotalDuration: 1})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Mode != timeline.ModeRatio {
		t.Fatalf("expected mode from the analyzer name, got %q", res.Mode)
	}
}
