package timeline

import (
	"math"
	"math/rand"
	"time"

	"github.com/jengzang/practice-backend-go/internal/models"
)

// Generated run bounds in seconds
const (
	minPlayRun   = 30
	maxPlayRun   = 300
	minBreakRun  = 10
	maxBreakRun  = 70
	minPlayEmit  = 5 // runs of this length or shorter become gap time
	minBreakEmit = 3
)

// generatedConfidence is the fixed confidence of simulated segments
var generatedConfidence = map[models.Label]float64{
	models.LabelInstrument: 0.85,
	models.LabelVoice:      0.8,
	models.LabelSilence:    0.95,
	models.LabelNoise:      0.7,
}

// SegmentByRatio generates a plausible timeline when no per-window features exist.
//
// Net practice time is fixed at round(total * targetRatio); the generated
// timeline only shapes how the remaining time splits between voice,
// silence and noise.
func SegmentByRatio(totalDuration, targetRatio float64, rng *rand.Rand) (models.AnalysisResult, error) {
	if err := validateDuration(totalDuration); err != nil {
		return models.AnalysisResult{}, err
	}
	if math.IsNaN(targetRatio) || targetRatio < 0 || targetRatio > 1 {
		return models.AnalysisResult{}, &models.ValidationError{Field: "targetRatio", Message: "must be between 0 and 1"}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	total := wholeSeconds(totalDuration)

	segments := layout(generateRuns(total, rng), total)

	net := math.Round(float64(total) * targetRatio)
	result := models.AnalysisResult{
		TotalDuration:   float64(total),
		NetPracticeTime: net,
		RestTime:        float64(total) - net,
		Segments:        segments,
		Mode:            ModeRatio,
	}
	result.Summary = ratioSummary(segments, targetRatio)
	return result, nil
}

func generateRuns(total int, rng *rand.Rand) []run {
	var runs []run
	t := 0
	playing := true
	for t < total {
		var length int
		var label models.Label
		threshold := minBreakEmit
		if playing {
			length = minPlayRun + rng.Intn(maxPlayRun-minPlayRun+1)
			label = models.LabelInstrument
			threshold = minPlayEmit
		} else {
			length = minBreakRun + rng.Intn(maxBreakRun-minBreakRun+1)
			label = pickBreakLabel(rng)
		}
		if length > total-t {
			length = total - t
		}

		if length > threshold {
			conf := generatedConfidence[label]
			runs = append(runs, run{
				label:   label,
				start:   float64(t),
				end:     float64(t + length),
				confSum: conf * float64(length),
				weight:  float64(length),
			})
		}
		t += length
		playing = !playing
	}
	return runs
}

// pickBreakLabel draws silence 30%, voice 20%, noise 50%.
func pickBreakLabel(rng *rand.Rand) models.Label {
	p := rng.Float64()
	switch {
	case p < 0.3:
		return models.LabelSilence
	case p < 0.5:
		return models.LabelVoice
	default:
		return models.LabelNoise
	}
}

// ratioSummary scales each break label's generated share to the adjusted rest time.
func ratioSummary(segments []models.PracticeSegment, targetRatio float64) models.Summary {
	perLabel := labelDurations(segments)
	breakTotal := perLabel[models.LabelVoice] + perLabel[models.LabelSilence] + perLabel[models.LabelNoise]
	restShare := (1 - targetRatio) * 100

	var summary models.Summary
	summary.InstrumentPercent = int(math.Round(targetRatio * 100))
	if breakTotal <= 0 {
		summary.NoisePercent = int(math.Round(restShare))
		return summary
	}
	for _, label := range []models.Label{models.LabelVoice, models.LabelSilence, models.LabelNoise} {
		summary.Set(label, int(math.Round(perLabel[label]/breakTotal*restShare)))
	}
	return summary
}
