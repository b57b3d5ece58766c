package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jengzang/practice-backend-go/internal/database"
	"github.com/jengzang/practice-backend-go/internal/models"
)

func createTestDB(t *testing.T) *database.DB {
	t.Helper()
	db := database.New(database.Config{Path: ":memory:"})
	t.Cleanup(func() { db.Close() })
	return db
}

func testSession(pieceID string, start time.Time) *models.PracticeSession {
	return &models.PracticeSession{
		PieceID:      pieceID,
		PieceName:    "Ballade Op.23 No.1",
		Composer:     "F. Chopin",
		StartTime:    start,
		EndTime:      start.Add(30 * time.Minute),
		TotalTime:    1800,
		PracticeTime: 1260,
		PracticeType: models.PracticePartial,
		MeasureRange: &models.MeasureRange{Start: 12, End: 48},
		TodoNote:     "left hand arpeggios",
	}
}

func TestSaveAndGetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	start := time.Date(2026, 3, 1, 9, 15, 0, 0, time.Local)

	id, err := repo.Save(ctx, testSession("1", start))
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.PieceName != "Ballade Op.23 No.1" || got.Composer != "F. Chopin" {
		t.Fatalf("unexpected piece fields: %+v", got)
	}
	if !got.StartTime.Equal(start) || !got.EndTime.Equal(start.Add(30*time.Minute)) {
		t.Fatalf("times not preserved: %v %v", got.StartTime, got.EndTime)
	}
	if got.MeasureRange == nil || got.MeasureRange.Start != 12 || got.MeasureRange.End != 48 {
		t.Fatalf("measure range not preserved: %+v", got.MeasureRange)
	}
	if got.PracticeType != models.PracticePartial || got.Synced {
		t.Fatalf("unexpected metadata: %+v", got)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	got, err := NewSessionRepository(createTestDB(t)).GetByID(context.Background(), 99)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", got, err)
	}
}

func TestGetAllEmptyIsEmptySlice(t *testing.T) {
	got, err := NewSessionRepository(createTestDB(t)).GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	start := time.Now()

	first, _ := repo.Save(ctx, testSession("1", start))
	second, _ := repo.Save(ctx, testSession("1", start))
	if err := repo.Delete(ctx, second); err != nil {
		t.Fatal(err)
	}
	third, err := repo.Save(ctx, testSession("1", start))
	if err != nil {
		t.Fatal(err)
	}
	if !(first < second && second < third) {
		t.Fatalf("ids not monotonic: %d %d %d", first, second, third)
	}
}

func TestGetByPieceAndUnsynced(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	start := time.Now()

	a, _ := repo.Save(ctx, testSession("1", start))
	b, _ := repo.Save(ctx, testSession("2", start))
	c, _ := repo.Save(ctx, testSession("1", start))

	byPiece, err := repo.GetByPiece(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byPiece) != 2 || byPiece[0].ID != a || byPiece[1].ID != c {
		t.Fatalf("unexpected sessions for piece 1: %+v", byPiece)
	}

	if err := repo.MarkSynced(ctx, a); err != nil {
		t.Fatal(err)
	}
	unsynced, err := repo.GetUnsynced(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(unsynced) != 2 || unsynced[0].ID != b || unsynced[1].ID != c {
		t.Fatalf("unexpected unsynced sessions: %+v", unsynced)
	}
}

func TestMarkSyncedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	id, _ := repo.Save(ctx, testSession("1", time.Now()))

	for i := 0; i < 2; i++ {
		if err := repo.MarkSynced(ctx, id); err != nil {
			t.Fatalf("MarkSynced call %d returned error: %v", i+1, err)
		}
	}
	got, _ := repo.GetByID(ctx, id)
	if !got.Synced {
		t.Fatal("expected session to be synced")
	}
}

func TestMarkSyncedMissingIsNotFound(t *testing.T) {
	err := NewSessionRepository(createTestDB(t)).MarkSynced(context.Background(), 7)
	if !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	id, _ := repo.Save(ctx, testSession("1", time.Now()))

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	err := repo.Delete(ctx, id)
	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError on second delete, got %v", err)
	}
	if nf.ID != id {
		t.Fatalf("expected id %d in error, got %d", id, nf.ID)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	repo.Save(ctx, testSession("1", time.Now()))
	repo.Save(ctx, testSession("2", time.Now()))

	if err := repo.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	all, _ := repo.GetAll(ctx)
	if len(all) != 0 {
		t.Fatalf("expected no sessions, got %d", len(all))
	}
}

func TestDeleteForPieceOnDay(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	today := time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)
	yesterday := today.AddDate(0, 0, -1)

	repo.Save(ctx, testSession("1", today))
	repo.Save(ctx, testSession("1", yesterday))
	repo.Save(ctx, testSession("2", today))

	n, err := repo.DeleteForPieceOnDay(ctx, "1", today)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
	all, _ := repo.GetAll(ctx)
	if len(all) != 2 {
		t.Fatalf("expected 2 remaining sessions, got %d", len(all))
	}
}

func TestStatsAndDayTotals(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)

	repo.Save(ctx, testSession("1", day))
	repo.Save(ctx, testSession("2", day.Add(3*time.Hour)))
	repo.Save(ctx, testSession("1", day.AddDate(0, 0, -2)))

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSessions != 3 || stats.TotalTime != 5400 || stats.TotalPracticeTime != 3780 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.AveragePracticeRatio < 69.99 || stats.AveragePracticeRatio > 70.01 {
		t.Fatalf("expected 70%% ratio, got %v", stats.AveragePracticeRatio)
	}

	totals, err := repo.DayTotals(ctx, day)
	if err != nil {
		t.Fatal(err)
	}
	if totals.Date != "2026-03-02" || totals.Sessions != 2 || totals.TotalTime != 3600 || totals.PracticeTime != 2520 {
		t.Fatalf("unexpected day totals %+v", totals)
	}
}

func TestGetBetweenIsHalfOpen(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(createTestDB(t))
	from, to := DayBounds(time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local))

	repo.Save(ctx, testSession("1", from))
	repo.Save(ctx, testSession("2", to.Add(-time.Millisecond)))
	repo.Save(ctx, testSession("3", to))
	repo.Save(ctx, testSession("4", from.Add(-time.Millisecond)))

	got, err := repo.GetBetween(ctx, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].PieceID != "1" || got[1].PieceID != "2" {
		t.Fatalf("expected pieces 1 and 2, got %+v", got)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	db := database.New(database.Config{Path: t.TempDir() + "/practice.db"})
	defer db.Close()
	repo := NewSessionRepository(db)

	id, err := repo.Save(ctx, testSession("1", time.Now()))
	if err != nil {
		t.Fatal(err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("expected transparent reopen, got %v", err)
	}
	if got == nil {
		t.Fatal("session lost after reopen")
	}
}

func TestIdentityEnsureIsStable(t *testing.T) {
	ctx := context.Background()
	repo := NewIdentityRepository(createTestDB(t))

	none, err := repo.Get(ctx)
	if err != nil || none != "" {
		t.Fatalf("expected no identity, got %q, %v", none, err)
	}

	first, err := repo.Ensure(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := repo.Ensure(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first == "" || first != second {
		t.Fatalf("identity not stable: %q vs %q", first, second)
	}
	got, _ := repo.Get(ctx)
	if got != first {
		t.Fatalf("Get returned %q, want %q", got, first)
	}
}
