package models

// Label is the acoustic class assigned to a window or segment
type Label string

// Label constants
const (
	LabelInstrument Label = "instrument"
	LabelVoice      Label = "voice"
	LabelSilence    Label = "silence"
	LabelNoise      Label = "noise"
)

// Labels lists every label in summary order
var Labels = []Label{LabelInstrument, LabelVoice, LabelSilence, LabelNoise}

// Valid reports whether l is one of the known labels
func (l Label) Valid() bool {
	switch l {
	case LabelInstrument, LabelVoice, LabelSilence, LabelNoise:
		return true
	}
	return false
}

// AcousticFeatures is the externally computed feature vector of one analysis window
type AcousticFeatures struct {
	DurationSeconds       float64 `json:"duration_seconds"`       // > 0
	AvgVolumeDB           float64 `json:"avg_volume_db"`          // dBFS, negative
	PitchDetected         bool    `json:"pitch_detected"`
	PitchStability        float64 `json:"pitch_stability"`        // 0~1
	HarmonicRatio         float64 `json:"harmonic_ratio"`         // 0~1
	TransientStrength     float64 `json:"transient_strength"`     // 0~1
	SpectralFlatness      float64 `json:"spectral_flatness"`      // 0~1
	VoiceProbability      float64 `json:"voice_probability"`      // 0~1
	PolyphonicProbability float64 `json:"polyphonic_probability"` // 0~1
}

// Classification is the classifier verdict for one window
type Classification struct {
	Label       Label   `json:"label"`
	Confidence  float64 `json:"confidence"`          // 0~1
	Secondary   *Label  `json:"secondary,omitempty"` // next lower-priority label that also matched
	RuleMatched string  `json:"rule_matched"`
}

// ClassifiedWindow is a window positioned on the recording timeline
type ClassifiedWindow struct {
	Start    float64 `json:"start"`    // seconds from recording start
	Duration float64 `json:"duration"` // seconds
	Classification
}

// End returns the end of the window in seconds
func (w ClassifiedWindow) End() float64 {
	return w.Start + w.Duration
}

// PracticeSegment is a maximal contiguous run of one label
type PracticeSegment struct {
	StartTime  float64 `json:"startTime"` // whole seconds
	EndTime    float64 `json:"endTime"`   // whole seconds
	Label      Label   `json:"type"`
	Confidence float64 `json:"confidence"` // 0~1
}

// Duration returns the segment length in seconds
func (s PracticeSegment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Summary holds per-label percentages of the recording
type Summary struct {
	InstrumentPercent int `json:"instrumentPercent"`
	VoicePercent      int `json:"voicePercent"`
	SilencePercent    int `json:"silencePercent"`
	NoisePercent      int `json:"noisePercent"`
}

// Set assigns the percentage for a label
func (s *Summary) Set(label Label, percent int) {
	switch label {
	case LabelInstrument:
		s.InstrumentPercent = percent
	case LabelVoice:
		s.VoicePercent = percent
	case LabelSilence:
		s.SilencePercent = percent
	case LabelNoise:
		s.NoisePercent = percent
	}
}

// Total returns the sum of all percentages
func (s Summary) Total() int {
	return s.InstrumentPercent + s.VoicePercent + s.SilencePercent + s.NoisePercent
}

// AnalysisResult is the outcome of analysing one recording
type AnalysisResult struct {
	TotalDuration   float64           `json:"totalDuration"`   // whole seconds
	NetPracticeTime float64           `json:"netPracticeTime"` // whole seconds
	RestTime        float64           `json:"restTime"`        // whole seconds
	Segments        []PracticeSegment `json:"segments"`
	Summary         Summary           `json:"summary"`
	Mode            string            `json:"mode"` // windows, ratio
}
