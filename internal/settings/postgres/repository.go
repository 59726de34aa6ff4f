// Package postgres provides PostgreSQL implementation of settings repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/bissquit/sellerdesk/internal/settings"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements settings.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetTelegramSettings retrieves a seller's Telegram settings.
func (r *Repository) GetTelegramSettings(ctx context.Context, userID string) (*domain.TelegramSettings, error) {
	query := `
		SELECT user_id, chat_id, enabled, created_at, updated_at
		FROM telegram_settings
		WHERE user_id = $1
	`
	var s domain.TelegramSettings
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.ChatID,
		&s.Enabled,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settings.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get telegram settings: %w", err)
	}
	return &s, nil
}

// UpsertTelegramSettings creates or replaces a seller's Telegram settings.
func (r *Repository) UpsertTelegramSettings(ctx context.Context, s *domain.TelegramSettings) error {
	query := `
		INSERT INTO telegram_settings (user_id, chat_id, enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET chat_id = EXCLUDED.chat_id, enabled = EXCLUDED.enabled, updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, s.UserID, s.ChatID, s.Enabled).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert telegram settings: %w", err)
	}
	return nil
}

// DeleteTelegramSettings removes a seller's Telegram settings.
func (r *Repository) DeleteTelegramSettings(ctx context.Context, userID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM telegram_settings WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete telegram settings: %w", err)
	}
	if result.RowsAffected() == 0 {
		return settings.ErrSettingsNotFound
	}
	return nil
}
