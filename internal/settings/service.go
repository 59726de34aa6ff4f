package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/bissquit/sellerdesk/internal/notifications"
)

// Service implements settings business logic.
type Service struct {
	repo Repository
}

// NewService creates a new settings service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetTelegram returns the seller's Telegram settings.
func (s *Service) GetTelegram(ctx context.Context, userID string) (*domain.TelegramSettings, error) {
	return s.repo.GetTelegramSettings(ctx, userID)
}

// SaveTelegram creates or replaces the seller's Telegram settings.
func (s *Service) SaveTelegram(ctx context.Context, userID, chatID string, enabled bool) (*domain.TelegramSettings, error) {
	settings := &domain.TelegramSettings{
		UserID:  userID,
		ChatID:  strings.TrimSpace(chatID),
		Enabled: enabled,
	}
	if err := s.repo.UpsertTelegramSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("save telegram settings: %w", err)
	}
	return settings, nil
}

// DeleteTelegram removes the seller's Telegram settings.
func (s *Service) DeleteTelegram(ctx context.Context, userID string) error {
	return s.repo.DeleteTelegramSettings(ctx, userID)
}

// LookupDestination returns the chat a seller's notifications go to.
func (s *Service) LookupDestination(ctx context.Context, userID string) (string, error) {
	settings, err := s.repo.GetTelegramSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return "", notifications.ErrDestinationNotConfigured
		}
		return "", fmt.Errorf("get telegram settings: %w", err)
	}

	if !settings.Enabled || settings.ChatID == "" {
		return "", notifications.ErrDestinationNotConfigured
	}
	return settings.ChatID, nil
}
