package service

import (
	"context"
	"time"

	"github.com/jengzang/practice-backend-go/internal/models"
	"github.com/jengzang/practice-backend-go/internal/repository"
)

// SessionService handles business logic for local practice sessions
type SessionService struct {
	repo *repository.SessionRepository
	now  func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(repo *repository.SessionRepository) *SessionService {
	return &SessionService{repo: repo, now: time.Now}
}

// Create validates and stores a finished session. Sync state always starts unsynced.
func (s *SessionService) Create(ctx context.Context, session *models.PracticeSession) (*models.PracticeSession, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	session.Synced = false
	if _, err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// List returns every session, or only those of one piece
func (s *SessionService) List(ctx context.Context, pieceID string) ([]models.PracticeSession, error) {
	if pieceID != "" {
		return s.repo.GetByPiece(ctx, pieceID)
	}
	return s.repo.GetAll(ctx)
}

// Get retrieves a single session by ID
func (s *SessionService) Get(ctx context.Context, id int64) (*models.PracticeSession, error) {
	return s.repo.GetByID(ctx, id)
}

// Unsynced returns the sessions waiting for the next sync pass
func (s *SessionService) Unsynced(ctx context.Context) ([]models.PracticeSession, error) {
	return s.repo.GetUnsynced(ctx)
}

// Delete removes one session
func (s *SessionService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ClearAll removes every local session
func (s *SessionService) ClearAll(ctx context.Context) error {
	return s.repo.ClearAll(ctx)
}

// UncompleteToday deletes today's auto-created sessions of a piece when its drill is un-marked
func (s *SessionService) UncompleteToday(ctx context.Context, pieceID string) (int64, error) {
	if pieceID == "" {
		return 0, &models.ValidationError{Field: "piece_id", Message: "piece id is required"}
	}
	return s.repo.DeleteForPieceOnDay(ctx, pieceID, s.now())
}

// Stats returns all-time totals
func (s *SessionService) Stats(ctx context.Context) (*models.PracticeStats, error) {
	return s.repo.Stats(ctx)
}

// Today returns today's totals
func (s *SessionService) Today(ctx context.Context) (*models.DayTotals, error) {
	return s.repo.DayTotals(ctx, s.now())
}
