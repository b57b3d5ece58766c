// Package remote talks to the shared backend that holds profiles, pushed
// practice sessions and the daily ranking table.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/practice-backend-go/internal/models"
)

// Backend is the remote store used by the sync coordinator
type Backend interface {
	// EnsureProfile creates the profile if it does not exist; an existing profile is left untouched
	EnsureProfile(ctx context.Context, profile models.Profile) error

	// PushSession writes one session; pushing the same client_key twice leaves one row
	PushSession(ctx context.Context, session models.RemoteSession) error

	// SessionsForDay returns the user's sessions that started on the local calendar day, oldest first
	SessionsForDay(ctx context.Context, userID string, day time.Time) ([]models.RemoteSession, error)

	// UpsertDailyRanking writes the aggregate keyed by (user_id, date)
	UpsertDailyRanking(ctx context.Context, aggregate models.DailyRankingAggregate) error

	// DailyRankings returns the leaderboard for a day ordered by practice time
	DailyRankings(ctx context.Context, day time.Time) ([]models.RankingEntry, error)
}

// DateKey formats a day the way the ranking table stores it
func DateKey(day time.Time) string {
	return day.Format("2006-01-02")
}

// ClientKey derives the idempotency key of a local session for a user
func ClientKey(userID string, localID int64) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("practice-session:%s:%d", userID, localID))).String()
}

// ToRemoteSession maps a local session to the remote row. Empty optional fields become null.
func ToRemoteSession(userID string, s models.PracticeSession) models.RemoteSession {
	rs := models.RemoteSession{
		UserID:       userID,
		ClientKey:    ClientKey(userID, s.ID),
		PieceID:      optional(s.PieceID),
		PieceName:    s.PieceName,
		Composer:     optional(s.Composer),
		StartTime:    s.StartTime.UTC().Format(time.RFC3339Nano),
		EndTime:      s.EndTime.UTC().Format(time.RFC3339Nano),
		TotalTime:    s.TotalTime,
		PracticeTime: s.PracticeTime,
		PracticeType: optional(string(s.PracticeType)),
		Label:        optional(s.Label),
		TodoNote:     optional(s.TodoNote),
		Synced:       true,
	}
	if s.MeasureRange != nil {
		start, end := s.MeasureRange.Start, s.MeasureRange.End
		rs.MeasureStart = &start
		rs.MeasureEnd = &end
	}
	return rs
}

// Aggregate computes the day's ranking row from the user's remote sessions
func Aggregate(userID string, day time.Time, sessions []models.RemoteSession) models.DailyRankingAggregate {
	agg := models.DailyRankingAggregate{UserID: userID, Date: DateKey(day)}
	for _, s := range sessions {
		agg.NetPracticeTime += s.PracticeTime
	}
	if n := len(sessions); n > 0 {
		song := sessions[n-1].PieceName
		agg.CurrentSong = &song
	}
	agg.GritScore = models.GritScore(agg.NetPracticeTime)
	return agg
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
