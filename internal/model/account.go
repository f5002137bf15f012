package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountStore defines persistence operations for accounts.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	ExistsByDisplayName(ctx context.Context, displayName string) (bool, error)
	Create(ctx context.Context, account Account) (Account, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (Account, error)
}

// Account represents a registered user.
type Account struct {
	ID            uuid.UUID
	Email         string
	DisplayName   string
	PasswordHash  string
	AvatarURL     *string
	PointsBalance string
	CreatedAt     time.Time
	LastLoginAt   *time.Time
}

// ProfileUpdate carries the profile fields a caller wants to change.
// Nil fields are left untouched; an empty AvatarURL clears the avatar.
type ProfileUpdate struct {
	DisplayName *string
	AvatarURL   *string
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.DisplayName == nil && u.AvatarURL == nil
}

// Apply copies every supplied field onto the account.
func (u ProfileUpdate) Apply(a Account) Account {
	if u.DisplayName != nil {
		a.DisplayName = *u.DisplayName
	}
	if u.AvatarURL != nil {
		if *u.AvatarURL == "" {
			a.AvatarURL = nil
		} else {
			url := *u.AvatarURL
			a.AvatarURL = &url
		}
	}
	return a
}
