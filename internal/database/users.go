package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/davidtorcivia/stifle-sub000/internal/models"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// Compile-time check: *DB must satisfy store.UserDirectory.
var _ store.UserDirectory = (*DB)(nil)

// GetTimezone returns the user's stored IANA timezone, the anchor for
// all week-boundary math. Changing it does not retroactively recompute
// past weeks.
func (db *DB) GetTimezone(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT timezone FROM users WHERE id = $1 AND is_active = true`

	var timezone string
	err := db.pool.QueryRow(ctx, query, userID).Scan(&timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to query timezone for user %s: %w", userID, err)
	}
	return timezone, nil
}

// GetByUsername returns an active user for credential checks.
func (db *DB) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, display_name, password_hash, timezone, is_active, created_at, updated_at
		FROM users
		WHERE username = $1 AND is_active = true
	`

	var user models.User
	err := db.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Timezone,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user %s: %w", username, err)
	}
	return &user, nil
}
