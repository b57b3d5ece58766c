// Package classifier labels single analysis windows from their acoustic features.
//
// Rules are evaluated in a fixed priority order and the first match wins:
//
//  1. silence    - the window is below the silence floor
//  2. voice      - speech is likely
//  3. instrument - melodic or chordal tonal content with no voice
//  4. noise      - flat or inharmonic spectrum
//  5. fallback   - anything else is noise with low confidence
//
// Ambiguous windows always resolve away from instrument so that borderline
// signal is never counted as practice time.
package classifier

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/practice-backend-go/internal/models"
)

// Thresholds
const (
	SilenceFloorDB   = -55.0
	QuietWindowDB    = -45.0
	ShortWindowSec   = 0.5
	BriefWindowSec   = 1.0
	SilenceConf      = 0.95
	NoiseConf        = 0.7
	FallbackConf     = 0.4
	shortWindowScale = 0.6
	briefWindowScale = 0.8
	quietWindowScale = 0.9
)

// Rule names recorded in Classification.RuleMatched
const (
	RuleSilenceFloor      = "silence_floor"
	RuleVoiceStrong       = "voice_strong"
	RuleVoiceHarmonic     = "voice_harmonic"
	RuleInstrumentMelodic = "instrument_melodic"
	RuleInstrumentChordal = "instrument_chordal"
	RuleNoiseSpectral     = "noise_spectral"
	RuleFallback          = "fallback"
)

type rule struct {
	name       string
	label      models.Label
	match      func(f models.AcousticFeatures) bool
	confidence func(f models.AcousticFeatures) float64
}

// rules is ordered by priority; lower entries never override higher ones.
var rules = []rule{
	{
		name:       RuleSilenceFloor,
		label:      models.LabelSilence,
		match:      func(f models.AcousticFeatures) bool { return f.AvgVolumeDB < SilenceFloorDB },
		confidence: func(models.AcousticFeatures) float64 { return SilenceConf },
	},
	{
		name:       RuleVoiceStrong,
		label:      models.LabelVoice,
		match:      func(f models.AcousticFeatures) bool { return f.VoiceProbability > 0.7 },
		confidence: func(f models.AcousticFeatures) float64 { return f.VoiceProbability },
	},
	{
		name:  RuleVoiceHarmonic,
		label: models.LabelVoice,
		match: func(f models.AcousticFeatures) bool {
			return f.VoiceProbability > 0.5 && f.HarmonicRatio > 0.5 && f.PolyphonicProbability < 0.3
		},
		confidence: func(f models.AcousticFeatures) float64 { return f.VoiceProbability * 0.9 },
	},
	{
		name:  RuleInstrumentMelodic,
		label: models.LabelInstrument,
		match: func(f models.AcousticFeatures) bool {
			return f.PitchDetected &&
				f.HarmonicRatio > 0.55 &&
				f.TransientStrength > 0.4 &&
				f.PitchStability > 0.5 &&
				f.VoiceProbability < 0.4 &&
				f.SpectralFlatness < 0.5
		},
		confidence: func(f models.AcousticFeatures) float64 {
			return stat.Mean([]float64{f.HarmonicRatio, f.TransientStrength, f.PitchStability}, nil)
		},
	},
	{
		name:  RuleInstrumentChordal,
		label: models.LabelInstrument,
		match: func(f models.AcousticFeatures) bool {
			return f.PolyphonicProbability > 0.6 && f.HarmonicRatio > 0.5 && f.VoiceProbability < 0.3
		},
		confidence: func(f models.AcousticFeatures) float64 { return f.PolyphonicProbability * 0.85 },
	},
	{
		name:  RuleNoiseSpectral,
		label: models.LabelNoise,
		match: func(f models.AcousticFeatures) bool {
			return f.SpectralFlatness > 0.6 || f.HarmonicRatio < 0.35
		},
		confidence: func(models.AcousticFeatures) float64 { return NoiseConf },
	},
}

// Classify labels one window. It is total and deterministic.
func Classify(f models.AcousticFeatures) models.Classification {
	result := models.Classification{
		Label:       models.LabelNoise,
		Confidence:  FallbackConf,
		RuleMatched: RuleFallback,
	}

	primary := -1
	for i, r := range rules {
		if !r.match(f) {
			continue
		}
		if primary < 0 {
			primary = i
			result.Label = r.label
			result.Confidence = r.confidence(f)
			result.RuleMatched = r.name
			continue
		}
		if r.label != result.Label {
			secondary := r.label
			result.Secondary = &secondary
			break
		}
	}

	// The silence floor is itself a loudness measurement, so the window
	// penalties do not apply to it.
	if result.RuleMatched != RuleSilenceFloor {
		result.Confidence = adjustConfidence(result.Confidence, f)
	}
	return result
}

// adjustConfidence applies window length and loudness penalties. It never changes the label.
func adjustConfidence(conf float64, f models.AcousticFeatures) float64 {
	if f.DurationSeconds < ShortWindowSec {
		conf *= shortWindowScale
	} else if f.DurationSeconds < BriefWindowSec {
		conf *= briefWindowScale
	}
	if f.AvgVolumeDB < QuietWindowDB {
		conf *= quietWindowScale
	}

	conf = math.Round(conf*100) / 100
	if conf < 0 || math.IsNaN(conf) {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

// ClassifyAll classifies consecutive windows and lays them end to end from t=0.
func ClassifyAll(features []models.AcousticFeatures) []models.ClassifiedWindow {
	windows := make([]models.ClassifiedWindow, 0, len(features))
	t := 0.0
	for _, f := range features {
		windows = append(windows, models.ClassifiedWindow{
			Start:          t,
			Duration:       f.DurationSeconds,
			Classification: Classify(f),
		})
		if f.DurationSeconds > 0 {
			t += f.DurationSeconds
		}
	}
	return windows
}
