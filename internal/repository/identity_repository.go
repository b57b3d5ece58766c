package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jengzang/practice-backend-go/internal/database"
	"github.com/jengzang/practice-backend-go/internal/models"
)

const identityKey = "user_id"

// IdentityRepository persists the device-scoped user id
type IdentityRepository struct {
	db *database.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *database.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Get returns the device user id, or "" if none has been created
func (r *IdentityRepository) Get(ctx context.Context) (string, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", err
	}

	var id string
	err = conn.QueryRowContext(ctx, "SELECT value FROM device_identity WHERE key = ?", identityKey).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get device identity: %w", err)
	}
	return id, nil
}

// Ensure returns the device user id, creating one on first call
func (r *IdentityRepository) Ensure(ctx context.Context) (string, error) {
	var id string
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO device_identity (key, value) VALUES (?, ?)",
			identityKey, uuid.NewString()); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, "SELECT value FROM device_identity WHERE key = ?", identityKey).Scan(&id)
	})
	if err != nil {
		return "", &models.StorageError{Op: "ensure device identity", Err: err}
	}
	return id, nil
}
