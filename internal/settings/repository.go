// Package settings manages where sellers receive order notifications.
package settings

import (
	"context"
	"errors"

	"github.com/bissquit/sellerdesk/internal/domain"
)

// ErrSettingsNotFound is returned when a seller has no Telegram settings.
var ErrSettingsNotFound = errors.New("telegram settings not found")

// Repository defines the interface for settings data operations.
type Repository interface {
	GetTelegramSettings(ctx context.Context, userID string) (*domain.TelegramSettings, error)
	UpsertTelegramSettings(ctx context.Context, settings *domain.TelegramSettings) error
	DeleteTelegramSettings(ctx context.Context, userID string) error
}
