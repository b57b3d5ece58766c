package models

import "math"

// Profile is the remote user profile created on first sync
type Profile struct {
	ID         string `json:"id"`
	Nickname   string `json:"nickname"`
	Instrument string `json:"instrument"`
}

// RemoteSession is the row pushed to the remote practice_sessions table
type RemoteSession struct {
	UserID       string  `json:"user_id"`
	ClientKey    string  `json:"client_key"` // deterministic per (user, local id)
	PieceID      *string `json:"piece_id"`
	PieceName    string  `json:"piece_name"`
	Composer     *string `json:"composer"`
	StartTime    string  `json:"start_time"` // ISO-8601
	EndTime      string  `json:"end_time"`   // ISO-8601
	TotalTime    int64   `json:"total_time"`
	PracticeTime int64   `json:"practice_time"`
	PracticeType *string `json:"practice_type"`
	Label        *string `json:"label"`
	MeasureStart *int    `json:"measure_start"`
	MeasureEnd   *int    `json:"measure_end"`
	TodoNote     *string `json:"todo_note"`
	Synced       bool    `json:"synced"`
}

// DailyRankingAggregate is the per-user, per-day ranking row
type DailyRankingAggregate struct {
	UserID          string  `json:"user_id"`
	Date            string  `json:"date"`              // YYYY-MM-DD
	NetPracticeTime int64   `json:"net_practice_time"` // seconds
	CurrentSong     *string `json:"current_song"`
	IsPracticing    bool    `json:"is_practicing"`
	GritScore       int     `json:"grit_score"` // 0-100
}

// GritLevel is the badge tier derived from a grit score
type GritLevel string

// GritLevel constants
const (
	GritBronze   GritLevel = "bronze"
	GritSilver   GritLevel = "silver"
	GritGold     GritLevel = "gold"
	GritPlatinum GritLevel = "platinum"
	GritDiamond  GritLevel = "diamond"
)

// gritSecondsPerPoint maps one hour of practice to a full score
const gritSecondsPerPoint = 36

// GritScore derives the 0-100 score from net practice seconds
func GritScore(netPracticeSeconds int64) int {
	if netPracticeSeconds <= 0 {
		return 0
	}
	score := int(math.Round(float64(netPracticeSeconds) / gritSecondsPerPoint))
	if score > 100 {
		return 100
	}
	return score
}

// GritLevelFor returns the tier for a score
func GritLevelFor(score int) GritLevel {
	switch {
	case score >= 80:
		return GritDiamond
	case score >= 60:
		return GritPlatinum
	case score >= 40:
		return GritGold
	case score >= 20:
		return GritSilver
	default:
		return GritBronze
	}
}

// RankingEntry is one row of the daily leaderboard
type RankingEntry struct {
	UserID          string    `json:"user_id"`
	Nickname        string    `json:"nickname"`
	Instrument      string    `json:"instrument"`
	NetPracticeTime int64     `json:"net_practice_time"`
	IsPracticing    bool      `json:"is_practicing"`
	CurrentSong     string    `json:"current_song,omitempty"`
	GritScore       int       `json:"grit_score"`
	GritLevel       GritLevel `json:"grit_level"`
	Rank            int       `json:"rank"`
}
