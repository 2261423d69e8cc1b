package model

import (
	"time"

	"telegram-pix-subscription/internal/domain"
)

// User is a domain entity representing a Telegram user in our system.
// Created on first contact; immutable afterwards except DisplayName.
type User struct {
	ID          string
	TelegramID  int64
	DisplayName string
	CreatedAt   time.Time
}

func NewUser(id string, tgID int64, displayName string) (*User, error) {
	if id == "" || tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:          id,
		TelegramID:  tgID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
