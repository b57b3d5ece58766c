package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mdobak/go-xerrors"

	"github.com/jengzang/practice-backend-go/internal/logging"
	"github.com/jengzang/practice-backend-go/internal/models"
	"github.com/jengzang/practice-backend-go/internal/remote"
)

// SessionStore is the part of the local store the sync pass needs
type SessionStore interface {
	GetUnsynced(ctx context.Context) ([]models.PracticeSession, error)
	MarkSynced(ctx context.Context, id int64) error
}

// IdentityStore resolves the device user id
type IdentityStore interface {
	Get(ctx context.Context) (string, error)
}

// SyncConfig controls push timeouts and retries
type SyncConfig struct {
	Nickname      string
	Instrument    string
	PushTimeout   time.Duration
	MaxRetries    int
	RetryInterval time.Duration // first backoff interval
}

// SyncResult summarises one sync pass
type SyncResult struct {
	UserID    string                        `json:"user_id,omitempty"`
	Skipped   bool                          `json:"skipped"`
	Reason    string                        `json:"reason,omitempty"` // why the pass was skipped
	Pushed    int                           `json:"pushed"`
	Failed    int                           `json:"failed"`
	Aggregate *models.DailyRankingAggregate `json:"aggregate,omitempty"`
}

func (r *SyncResult) skip(reason error) *SyncResult {
	r.Skipped = true
	r.Reason = reason.Error()
	return r
}

// SyncService reconciles local sessions with the remote backend
type SyncService struct {
	sessions SessionStore
	identity IdentityStore
	remote   remote.Backend // nil when running offline
	cfg      SyncConfig
	now      func() time.Time

	mu sync.Mutex
}

// NewSyncService creates a new sync service. A nil backend makes every pass a no-op.
func NewSyncService(sessions SessionStore, identity IdentityStore, backend remote.Backend, cfg SyncConfig) *SyncService {
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	return &SyncService{
		sessions: sessions,
		identity: identity,
		remote:   backend,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Enabled reports whether a remote backend is configured
func (s *SyncService) Enabled() bool {
	return s.remote != nil
}

// Sync runs one pass: ensure the profile, push every unsynced session, then
// recompute today's aggregate. Passes never overlap.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.GetLogger()
	result := &SyncResult{}

	if s.remote == nil {
		return result.skip(models.ErrOffline), nil
	}

	userID, err := s.identity.Get(ctx)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		logger.DebugContext(ctx, "skipping sync", slog.Any("reason", models.ErrNoIdentity))
		return result.skip(models.ErrNoIdentity), nil
	}
	result.UserID = userID

	profile := models.Profile{ID: userID, Nickname: s.cfg.Nickname, Instrument: s.cfg.Instrument}
	if err := s.remote.EnsureProfile(ctx, profile); err != nil {
		err := xerrors.New(err)
		logger.WarnContext(ctx, "failed to ensure profile", slog.String("user_id", userID), slog.Any("error", err))
	}

	unsynced, err := s.sessions.GetUnsynced(ctx)
	if err != nil {
		return nil, err
	}

	for _, session := range unsynced {
		if ctx.Err() != nil {
			break
		}
		if err := s.push(ctx, remote.ToRemoteSession(userID, session)); err != nil {
			err := xerrors.New(err)
			logger.WarnContext(ctx, "failed to push session", slog.Int64("session_id", session.ID), slog.Any("error", err))
			result.Failed++
			continue
		}

		if err := s.sessions.MarkSynced(ctx, session.ID); err != nil {
			// the row is already remote; a deleted local row has nothing left to mark
			err := xerrors.New(err)
			logger.WarnContext(ctx, "failed to mark session synced", slog.Int64("session_id", session.ID), slog.Any("error", err))
		}
		result.Pushed++
	}

	agg, err := s.recomputeAggregate(ctx, userID)
	if err != nil {
		err := xerrors.New(err)
		logger.WarnContext(ctx, "failed to update daily ranking", slog.String("user_id", userID), slog.Any("error", err))
	} else {
		result.Aggregate = agg
	}

	logger.InfoContext(ctx, "sync pass finished",
		slog.Int("pushed", result.Pushed),
		slog.Int("failed", result.Failed),
		slog.Bool("aggregate_updated", result.Aggregate != nil),
	)
	return result, nil
}

// push writes one session with a per-attempt timeout and exponential backoff
func (s *SyncService) push(ctx context.Context, session models.RemoteSession) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.cfg.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		pushCtx, cancel := context.WithTimeout(ctx, s.cfg.PushTimeout)
		defer cancel()
		return s.remote.PushSession(pushCtx, session)
	}, policy)
}

func (s *SyncService) recomputeAggregate(ctx context.Context, userID string) (*models.DailyRankingAggregate, error) {
	today := s.now()
	sessions, err := s.remote.SessionsForDay(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	agg := remote.Aggregate(userID, today, sessions)
	if err := s.remote.UpsertDailyRanking(ctx, agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// TodayRankings returns today's leaderboard, or an empty list when offline
func (s *SyncService) TodayRankings(ctx context.Context) ([]models.RankingEntry, error) {
	if s.remote == nil {
		return []models.RankingEntry{}, nil
	}
	return s.remote.DailyRankings(ctx, s.now())
}

// Run syncs immediately and then on every tick until ctx is cancelled
func (s *SyncService) Run(ctx context.Context, interval time.Duration) {
	if s.remote == nil || interval <= 0 {
		return
	}

	logger := logging.GetLogger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sync(ctx); err != nil && ctx.Err() == nil {
			err := xerrors.New(err)
			logger.ErrorContext(ctx, "sync pass failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
