package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/jengzang/practice-backend-go/internal/models"
)

// Remote table names
const (
	TableProfiles      = "profiles"
	TableSessions      = "practice_sessions"
	TableDailyRankings = "daily_rankings"
)

// Defaults used when a ranking row has no joined profile
const (
	DefaultNickname   = "익명"
	DefaultInstrument = "piano"
)

// postgres unique_violation
const uniqueViolation = "23505"

// Config holds the Supabase connection settings
type Config struct {
	URL string
	Key string
}

// SupabaseBackend implements Backend on Supabase's PostgREST API
type SupabaseBackend struct {
	client *supabase.Client
}

// NewSupabaseBackend creates the backend client
func NewSupabaseBackend(cfg Config) (*SupabaseBackend, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.Key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &SupabaseBackend{client: client}, nil
}

// EnsureProfile inserts the profile and treats a duplicate id as success
func (b *SupabaseBackend) EnsureProfile(ctx context.Context, profile models.Profile) error {
	err := withContext(ctx, func() error {
		_, _, err := b.client.From(TableProfiles).
			Insert(profile, false, "", "minimal", "").
			Execute()
		return err
	})
	if err != nil && strings.Contains(err.Error(), uniqueViolation) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

// PushSession upserts the session on its client_key
func (b *SupabaseBackend) PushSession(ctx context.Context, session models.RemoteSession) error {
	err := withContext(ctx, func() error {
		_, _, err := b.client.From(TableSessions).
			Upsert(session, "client_key", "minimal", "").
			Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to push session %s: %w", session.ClientKey, err)
	}
	return nil
}

// SessionsForDay returns the user's sessions started within the local calendar day
func (b *SupabaseBackend) SessionsForDay(ctx context.Context, userID string, day time.Time) ([]models.RemoteSession, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	var sessions []models.RemoteSession
	err := withContext(ctx, func() error {
		_, err := b.client.From(TableSessions).
			Select("piece_name,practice_time,start_time", "", false).
			Eq("user_id", userID).
			Gte("start_time", from.Format(time.RFC3339)).
			Lt("start_time", to.Format(time.RFC3339)).
			Order("start_time", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&sessions)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions for %s: %w", DateKey(day), err)
	}
	return sessions, nil
}

// UpsertDailyRanking writes the aggregate, replacing any row for the same user and date
func (b *SupabaseBackend) UpsertDailyRanking(ctx context.Context, aggregate models.DailyRankingAggregate) error {
	err := withContext(ctx, func() error {
		_, _, err := b.client.From(TableDailyRankings).
			Upsert(aggregate, "user_id,date", "minimal", "").
			Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert daily ranking: %w", err)
	}
	return nil
}

type rankingRow struct {
	UserID          string  `json:"user_id"`
	NetPracticeTime int64   `json:"net_practice_time"`
	IsPracticing    bool    `json:"is_practicing"`
	CurrentSong     *string `json:"current_song"`
	GritScore       int     `json:"grit_score"`
	Profiles        *struct {
		Nickname   string `json:"nickname"`
		Instrument string `json:"instrument"`
	} `json:"profiles"`
}

// DailyRankings returns the day's leaderboard joined with profile names
func (b *SupabaseBackend) DailyRankings(ctx context.Context, day time.Time) ([]models.RankingEntry, error) {
	var rows []rankingRow
	err := withContext(ctx, func() error {
		_, err := b.client.From(TableDailyRankings).
			Select("user_id,net_practice_time,is_practicing,current_song,grit_score,profiles!daily_rankings_user_id_fkey(nickname,instrument)", "", false).
			Eq("date", DateKey(day)).
			Order("net_practice_time", &postgrest.OrderOpts{Ascending: false}).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query rankings: %w", err)
	}

	entries := make([]models.RankingEntry, 0, len(rows))
	for i, row := range rows {
		entry := models.RankingEntry{
			UserID:          row.UserID,
			Nickname:        DefaultNickname,
			Instrument:      DefaultInstrument,
			NetPracticeTime: row.NetPracticeTime,
			IsPracticing:    row.IsPracticing,
			GritScore:       row.GritScore,
			GritLevel:       models.GritLevelFor(row.GritScore),
			Rank:            i + 1,
		}
		if row.CurrentSong != nil {
			entry.CurrentSong = *row.CurrentSong
		}
		if row.Profiles != nil {
			if row.Profiles.Nickname != "" {
				entry.Nickname = row.Profiles.Nickname
			}
			if row.Profiles.Instrument != "" {
				entry.Instrument = row.Profiles.Instrument
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// withContext runs a blocking client call and returns early when ctx is done.
// The PostgREST client takes no context, so an abandoned call finishes in the background.
func withContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
