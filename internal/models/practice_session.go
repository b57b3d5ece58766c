package models

import (
	"strings"
	"time"
)

// PracticeType describes how a session was practised
type PracticeType string

// PracticeType constants
const (
	PracticePartial    PracticeType = "partial"
	PracticeRoutine    PracticeType = "routine"
	PracticeRunthrough PracticeType = "runthrough"
)

// Valid reports whether t is empty or a known practice type
func (t PracticeType) Valid() bool {
	switch t {
	case "", PracticePartial, PracticeRoutine, PracticeRunthrough:
		return true
	}
	return false
}

// MeasureRange is the bar range a session focused on
type MeasureRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// PracticeSession is a completed practice session kept in the local store
type PracticeSession struct {
	ID int64 `json:"id" db:"id"` // assigned by the store

	// Piece
	PieceID   string `json:"piece_id" db:"piece_id"`
	PieceName string `json:"piece_name" db:"piece_name"`
	Composer  string `json:"composer,omitempty" db:"composer"`

	// Timing
	StartTime    time.Time `json:"start_time" db:"start_time"`
	EndTime      time.Time `json:"end_time" db:"end_time"`
	TotalTime    int64     `json:"total_time" db:"total_time"`       // seconds
	PracticeTime int64     `json:"practice_time" db:"practice_time"` // seconds of instrument sound

	// Practice metadata
	PracticeType PracticeType  `json:"practice_type,omitempty" db:"practice_type"`
	Label        string        `json:"label,omitempty" db:"label"`
	MeasureRange *MeasureRange `json:"measure_range,omitempty"`
	TodoNote     string        `json:"todo_note,omitempty" db:"todo_note"`

	Synced bool `json:"synced" db:"synced"`
}

// Validate checks the fields a caller must supply before saving
func (s *PracticeSession) Validate() error {
	if strings.TrimSpace(s.PieceName) == "" {
		return &ValidationError{Field: "piece_name", Message: "piece name is required"}
	}
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return &ValidationError{Field: "start_time", Message: "start and end time are required"}
	}
	if s.EndTime.Before(s.StartTime) {
		return &ValidationError{Field: "end_time", Message: "end time is before start time"}
	}
	if s.TotalTime < 0 || s.PracticeTime < 0 {
		return &ValidationError{Field: "total_time", Message: "durations must not be negative"}
	}
	if s.PracticeTime > s.TotalTime {
		return &ValidationError{Field: "practice_time", Message: "practice time exceeds total time"}
	}
	if !s.PracticeType.Valid() {
		return &ValidationError{Field: "practice_type", Message: "unknown practice type " + string(s.PracticeType)}
	}
	if s.MeasureRange != nil && s.MeasureRange.End < s.MeasureRange.Start {
		return &ValidationError{Field: "measure_range", Message: "measure range end is before start"}
	}
	return nil
}

// PracticeStats is the all-time summary of the local store
type PracticeStats struct {
	TotalSessions        int     `json:"totalSessions"`
	TotalTime            int64   `json:"totalTime"`            // seconds
	TotalPracticeTime    int64   `json:"totalPracticeTime"`    // seconds
	AveragePracticeRatio float64 `json:"averagePracticeRatio"` // percent
}

// DayTotals summarises the sessions started on one calendar day
type DayTotals struct {
	Date         string `json:"date"` // YYYY-MM-DD
	TotalTime    int64  `json:"totalTime"`
	PracticeTime int64  `json:"practiceTime"`
	Sessions     int    `json:"sessions"`
}
