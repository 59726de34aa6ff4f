package domain

import "time"

// TelegramSettings holds where a seller receives order notifications.
type TelegramSettings struct {
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
