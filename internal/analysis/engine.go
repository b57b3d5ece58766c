package analysis

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jengzang/practice-backend-go/internal/analysis/classifier"
	"github.com/jengzang/practice-backend-go/internal/analysis/timeline"
	"github.com/jengzang/practice-backend-go/internal/models"
)

// Request is one recording submitted for analysis
type Request struct {
	Audio         []byte                    // raw recording payload
	TotalDuration float64                   // seconds, > 0
	Windows       []models.AcousticFeatures // per-window features; empty selects ratio mode
	TargetRatio   *float64                  // ratio mode only; nil uses the engine default
}

// Analyzer is the interface that every analysis mode implements
type Analyzer interface {
	// Analyze produces the timeline for a validated request
	Analyze(ctx context.Context, req Request) (models.AnalysisResult, error)

	// Name returns the mode name recorded on the result
	Name() string
}

// AnalyzerFactory creates an analyzer bound to an engine's settings
type AnalyzerFactory func(e *Engine) Analyzer

// analyzerRegistry maps mode names to analyzer factories
var analyzerRegistry = make(map[string]AnalyzerFactory)

// RegisterAnalyzer registers an analyzer factory for a mode name
func RegisterAnalyzer(mode string, factory AnalyzerFactory) {
	analyzerRegistry[mode] = factory
}

// RegisteredModes lists the registered mode names
func RegisteredModes() []string {
	modes := make([]string, 0, len(analyzerRegistry))
	for mode := range analyzerRegistry {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

func init() {
	RegisterAnalyzer(timeline.ModeWindows, func(*Engine) Analyzer { return windowAnalyzer{} })
	RegisterAnalyzer(timeline.ModeRatio, func(e *Engine) Analyzer { return &ratioAnalyzer{engine: e} })
}

// EngineConfig holds analysis settings
type EngineConfig struct {
	DefaultRatio float64       // ratio mode target when a request has none
	MaxDuration  time.Duration // longest accepted recording, capped at timeline.MaxDuration
}

// Engine validates requests and dispatches them to the matching analyzer
type Engine struct {
	defaultRatio float64
	maxDuration  float64 // seconds

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an engine. A nil rng is seeded from the clock.
func NewEngine(cfg EngineConfig, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	maxDuration := cfg.MaxDuration.Seconds()
	if maxDuration <= 0 || maxDuration > timeline.MaxDuration {
		maxDuration = timeline.MaxDuration
	}
	return &Engine{defaultRatio: cfg.DefaultRatio, maxDuration: maxDuration, rng: rng}
}

// Analyze runs the analysis for one recording
func (e *Engine) Analyze(ctx context.Context, req Request) (models.AnalysisResult, error) {
	if len(req.Audio) == 0 {
		return models.AnalysisResult{}, &models.ValidationError{Field: "audio", Message: "recording payload is required"}
	}
	if !(req.TotalDuration > 0) {
		return models.AnalysisResult{}, &models.ValidationError{Field: "totalDuration", Message: "must be a positive number of seconds"}
	}
	if req.TotalDuration > e.maxDuration {
		return models.AnalysisResult{}, &models.ValidationError{
			Field:   "totalDuration",
			Message: fmt.Sprintf("must not exceed %g seconds", e.maxDuration),
		}
	}
	if err := ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}

	mode := timeline.ModeRatio
	if len(req.Windows) > 0 {
		mode = timeline.ModeWindows
	}
	factory, ok := analyzerRegistry[mode]
	if !ok {
		return models.AnalysisResult{}, fmt.Errorf("no analyzer registered for mode %q", mode)
	}
	analyzer := factory(e)
	result, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	result.Mode = analyzer.Name()
	return result, nil
}

// windowAnalyzer classifies each window and merges the labels into segments
type windowAnalyzer struct{}

func (windowAnalyzer) Name() string { return timeline.ModeWindows }

func (windowAnalyzer) Analyze(_ context.Context, req Request) (models.AnalysisResult, error) {
	for i, f := range req.Windows {
		if !(f.DurationSeconds > 0) {
			return models.AnalysisResult{}, &models.ValidationError{
				Field:   "windows",
				Message: fmt.Sprintf("window %d has non-positive duration", i),
			}
		}
	}
	return timeline.Segment(req.TotalDuration, classifier.ClassifyAll(req.Windows))
}

// ratioAnalyzer generates a timeline from a target practice ratio
type ratioAnalyzer struct {
	engine *Engine
}

func (a *ratioAnalyzer) Name() string { return timeline.ModeRatio }

func (a *ratioAnalyzer) Analyze(_ context.Context, req Request) (models.AnalysisResult, error) {
	ratio := a.engine.defaultRatio
	if req.TargetRatio != nil {
		ratio = *req.TargetRatio
	}

	// rand.Rand is not safe for concurrent use
	a.engine.mu.Lock()
	defer a.engine.mu.Unlock()
	return timeline.SegmentByRatio(req.TotalDuration, ratio, a.engine.rng)
}
