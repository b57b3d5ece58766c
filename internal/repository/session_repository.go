package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/practice-backend-go/internal/database"
	"github.com/jengzang/practice-backend-go/internal/models"
)

const sessionColumns = `id, piece_id, piece_name, composer, start_time, end_time,
	total_time, practice_time, practice_type, label,
	measure_start, measure_end, todo_note, synced`

// SessionRepository handles database operations for practice sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save inserts a session and returns its new id. Ids are never reused.
func (r *SessionRepository) Save(ctx context.Context, s *models.PracticeSession) (int64, error) {
	var measureStart, measureEnd sql.NullInt64
	if s.MeasureRange != nil {
		measureStart = sql.NullInt64{Int64: int64(s.MeasureRange.Start), Valid: true}
		measureEnd = sql.NullInt64{Int64: int64(s.MeasureRange.End), Valid: true}
	}

	var id int64
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `INSERT INTO practice_sessions (
			piece_id, piece_name, composer, start_time, end_time,
			total_time, practice_time, practice_type, label,
			measure_start, measure_end, todo_note, synced
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.PieceID, s.PieceName, s.Composer, s.StartTime.UnixMilli(), s.EndTime.UnixMilli(),
			s.TotalTime, s.PracticeTime, string(s.PracticeType), s.Label,
			measureStart, measureEnd, s.TodoNote, s.Synced,
		)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, &models.StorageError{Op: "save session", Err: err}
	}

	s.ID = id
	return id, nil
}

// GetAll returns every session in insertion order
func (r *SessionRepository) GetAll(ctx context.Context) ([]models.PracticeSession, error) {
	return r.query(ctx, "SELECT "+sessionColumns+" FROM practice_sessions ORDER BY id")
}

// GetByID returns the session or nil if it does not exist
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.PracticeSession, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	row := conn.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM practice_sessions WHERE id = ?", id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetByPiece returns the sessions recorded for a piece
func (r *SessionRepository) GetByPiece(ctx context.Context, pieceID string) ([]models.PracticeSession, error) {
	return r.query(ctx, "SELECT "+sessionColumns+" FROM practice_sessions WHERE piece_id = ? ORDER BY id", pieceID)
}

// GetUnsynced returns the sessions not yet pushed to the remote, oldest first
func (r *SessionRepository) GetUnsynced(ctx context.Context) ([]models.PracticeSession, error) {
	return r.query(ctx, "SELECT "+sessionColumns+" FROM practice_sessions WHERE synced = 0 ORDER BY id")
}

// GetBetween returns the sessions that started in [from, to)
func (r *SessionRepository) GetBetween(ctx context.Context, from, to time.Time) ([]models.PracticeSession, error) {
	return r.query(ctx, "SELECT "+sessionColumns+" FROM practice_sessions WHERE start_time >= ? AND start_time < ? ORDER BY id",
		from.UnixMilli(), to.UnixMilli())
}

// MarkSynced flips the synced flag. Marking an already synced session is a no-op.
func (r *SessionRepository) MarkSynced(ctx context.Context, id int64) error {
	var affected int64
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM practice_sessions WHERE id = ?", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		affected = 1
		_, err = tx.ExecContext(ctx, "UPDATE practice_sessions SET synced = 1 WHERE id = ?", id)
		return err
	})
	if err != nil {
		return &models.StorageError{Op: "mark session synced", Err: err}
	}
	if affected == 0 {
		return &models.NotFoundError{Resource: "session", ID: id}
	}
	return nil
}

// Delete removes one session
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM practice_sessions WHERE id = ?", id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return &models.StorageError{Op: "delete session", Err: err}
	}
	if affected == 0 {
		return &models.NotFoundError{Resource: "session", ID: id}
	}
	return nil
}

// DeleteForPieceOnDay removes the sessions of a piece that started on the given local calendar day
func (r *SessionRepository) DeleteForPieceOnDay(ctx context.Context, pieceID string, day time.Time) (int64, error) {
	from, to := DayBounds(day)

	var affected int64
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"DELETE FROM practice_sessions WHERE piece_id = ? AND start_time >= ? AND start_time < ?",
			pieceID, from.UnixMilli(), to.UnixMilli())
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, &models.StorageError{Op: "delete sessions for piece", Err: err}
	}
	return affected, nil
}

// ClearAll removes every session
func (r *SessionRepository) ClearAll(ctx context.Context) error {
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM practice_sessions")
		return err
	})
	if err != nil {
		return &models.StorageError{Op: "clear sessions", Err: err}
	}
	return nil
}

// Stats returns all-time totals
func (r *SessionRepository) Stats(ctx context.Context) (*models.PracticeStats, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var stats models.PracticeStats
	err = conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(total_time), 0), COALESCE(SUM(practice_time), 0)
		FROM practice_sessions`).Scan(&stats.TotalSessions, &stats.TotalTime, &stats.TotalPracticeTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	if stats.TotalTime > 0 {
		stats.AveragePracticeRatio = float64(stats.TotalPracticeTime) / float64(stats.TotalTime) * 100
	}
	return &stats, nil
}

// DayTotals sums the sessions that started on the given local calendar day
func (r *SessionRepository) DayTotals(ctx context.Context, day time.Time) (*models.DayTotals, error) {
	from, to := DayBounds(day)
	sessions, err := r.GetBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get day totals: %w", err)
	}

	totals := models.DayTotals{Date: from.Format("2006-01-02"), Sessions: len(sessions)}
	for _, s := range sessions {
		totals.TotalTime += s.TotalTime
		totals.PracticeTime += s.PracticeTime
	}
	return &totals, nil
}

// DayBounds returns local midnight of day and of the following day
func DayBounds(day time.Time) (time.Time, time.Time) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return from, from.AddDate(0, 0, 1)
}

func (r *SessionRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.PracticeSession, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.PracticeSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.PracticeSession, error) {
	var (
		s            models.PracticeSession
		start, end   int64
		practiceType string
		measureStart sql.NullInt64
		measureEnd   sql.NullInt64
	)
	err := row.Scan(
		&s.ID, &s.PieceID, &s.PieceName, &s.Composer, &start, &end,
		&s.TotalTime, &s.PracticeTime, &practiceType, &s.Label,
		&measureStart, &measureEnd, &s.TodoNote, &s.Synced,
	)
	if err != nil {
		return nil, err
	}

	s.StartTime = time.UnixMilli(start)
	s.EndTime = time.UnixMilli(end)
	s.PracticeType = models.PracticeType(practiceType)
	if measureStart.Valid && measureEnd.Valid {
		s.MeasureRange = &models.MeasureRange{Start: int(measureStart.Int64), End: int(measureEnd.Int64)}
	}
	return &s, nil
}
