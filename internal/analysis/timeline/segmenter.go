// Package timeline turns classified windows into a contiguous segment timeline.
//
// Every timeline covers [0, total) in whole seconds with no overlaps. Time not
// covered by any window is folded into a neighbouring segment; when one side
// of a gap is instrument and the other is not, the gap goes to the
// non-instrument side so unattributed time is never counted as practice.
package timeline

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/jengzang/practice-backend-go/internal/models"
)

// Analysis modes
const (
	ModeWindows = "windows"
	ModeRatio   = "ratio"
)

// MaxDuration is the longest recording, in seconds, a timeline is built for
const MaxDuration = 24 * 60 * 60

// emptyConfidence is used when a recording has no usable windows
const emptyConfidence = 0.4

type run struct {
	label   models.Label
	start   float64
	end     float64
	confSum float64 // confidence weighted by seconds
	weight  float64 // seconds contributing to confSum
}

func (r run) confidence() float64 {
	if r.weight <= 0 {
		return 0
	}
	return math.Round(r.confSum/r.weight*100) / 100
}

// Segment merges classified windows into labelled segments and summarises them.
func Segment(totalDuration float64, windows []models.ClassifiedWindow) (models.AnalysisResult, error) {
	if err := validateDuration(totalDuration); err != nil {
		return models.AnalysisResult{}, err
	}
	total := wholeSeconds(totalDuration)

	sorted := make([]models.ClassifiedWindow, len(windows))
	copy(sorted, windows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	segments := layout(mergeWindows(sorted, float64(total)), total)
	result := summarize(total, segments)
	result.Mode = ModeWindows
	return result, nil
}

// mergeWindows collapses same-label neighbours into runs, clipping to [0, limit).
// Overlapping windows lose their overlapped prefix to the earlier run.
func mergeWindows(windows []models.ClassifiedWindow, limit float64) []run {
	var runs []run
	for _, w := range windows {
		if w.Duration <= 0 || math.IsNaN(w.Start) || math.IsNaN(w.Duration) {
			continue
		}
		start := math.Max(w.Start, 0)
		end := math.Min(w.End(), limit)
		label := w.Label
		if !label.Valid() {
			label = models.LabelNoise
		}

		if n := len(runs); n > 0 {
			last := &runs[n-1]
			start = math.Max(start, last.end)
			if end <= start {
				continue
			}
			if last.label == label {
				last.end = end
				last.confSum += w.Confidence * (end - start)
				last.weight += end - start
				continue
			}
		}
		if end <= start {
			continue
		}
		runs = append(runs, run{
			label:   label,
			start:   start,
			end:     end,
			confSum: w.Confidence * (end - start),
			weight:  end - start,
		})
	}
	return runs
}

// layout rounds runs to whole seconds and makes them cover [0, total) exactly.
func layout(runs []run, total int) []models.PracticeSegment {
	if len(runs) == 0 {
		return []models.PracticeSegment{{
			StartTime:  0,
			EndTime:    float64(total),
			Label:      models.LabelNoise,
			Confidence: emptyConfidence,
		}}
	}

	segments := make([]models.PracticeSegment, 0, len(runs))
	last := len(runs) - 1
	cursor := 0
	for i, r := range runs {
		boundary := total
		if i < last {
			// Runs squeezed out by nudged boundaries are skipped; the last run
			// always keeps at least the final second.
			if cursor >= total-1 {
				continue
			}
			next := runs[i+1]
			// The gap between r and next joins r unless that would count it as practice.
			boundary = roundSec(next.start)
			if r.label == models.LabelInstrument && next.label != models.LabelInstrument {
				boundary = roundSec(r.end)
			}
			if boundary <= cursor {
				boundary = cursor + 1
			}
			if boundary > total-1 {
				boundary = total - 1
			}
		}

		segments = append(segments, models.PracticeSegment{
			StartTime:  float64(cursor),
			EndTime:    float64(boundary),
			Label:      r.label,
			Confidence: r.confidence(),
		})
		cursor = boundary
	}

	return coalesce(segments)
}

// coalesce merges adjacent segments that ended up with the same label.
func coalesce(segments []models.PracticeSegment) []models.PracticeSegment {
	out := segments[:0]
	for _, s := range segments {
		if n := len(out); n > 0 && out[n-1].Label == s.Label {
			prev := &out[n-1]
			d1, d2 := prev.Duration(), s.Duration()
			if d1+d2 > 0 {
				prev.Confidence = math.Round((prev.Confidence*d1+s.Confidence*d2)/(d1+d2)*100) / 100
			}
			prev.EndTime = s.EndTime
			continue
		}
		out = append(out, s)
	}
	return out
}

// summarize computes net practice time and per-label percentages from segments.
func summarize(total int, segments []models.PracticeSegment) models.AnalysisResult {
	perLabel := labelDurations(segments)
	net := perLabel[models.LabelInstrument]

	var summary models.Summary
	for _, label := range models.Labels {
		summary.Set(label, percent(perLabel[label], float64(total)))
	}

	return models.AnalysisResult{
		TotalDuration:   float64(total),
		NetPracticeTime: net,
		RestTime:        float64(total) - net,
		Segments:        segments,
		Summary:         summary,
	}
}

func labelDurations(segments []models.PracticeSegment) map[models.Label]float64 {
	durations := make(map[models.Label][]float64, len(models.Labels))
	for _, s := range segments {
		durations[s.Label] = append(durations[s.Label], s.Duration())
	}
	out := make(map[models.Label]float64, len(models.Labels))
	for _, label := range models.Labels {
		out[label] = floats.Sum(durations[label])
	}
	return out
}

func percent(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(part / whole * 100))
}

func validateDuration(totalDuration float64) error {
	if math.IsNaN(totalDuration) || math.IsInf(totalDuration, 0) || totalDuration <= 0 {
		return &models.ValidationError{Field: "totalDuration", Message: "must be a positive number of seconds"}
	}
	if totalDuration > MaxDuration {
		return &models.ValidationError{Field: "totalDuration", Message: fmt.Sprintf("must not exceed %d seconds", MaxDuration)}
	}
	return nil
}

// wholeSeconds rounds a validated duration to the nearest second, never below one.
func wholeSeconds(d float64) int {
	s := int(math.Round(d))
	if s < 1 {
		return 1
	}
	return s
}

func roundSec(t float64) int {
	return int(math.Round(t))
}
