package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/model"
)

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Account serves the authenticated user's own profile.
type Account struct {
	tx      model.Transactor
	storage model.Storage
	logger  *logger.Logger
}

// NewAccount creates an Account service. storage may be nil, in which case
// avatar uploads fail with model.ErrStorageDisabled.
func NewAccount(tx model.Transactor, storage model.Storage, logger *logger.Logger) *Account {
	return &Account{tx: tx, storage: storage, logger: logger}
}

// Get returns the account by id.
func (s *Account) Get(ctx context.Context, id uuid.UUID) (model.Account, error) {
	var account model.Account
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		var err error
		account, err = stores.Accounts.GetByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("failed to get account by id: %w", err)
	}

	return account, nil
}

// UpdateProfile changes only the fields set in update.
func (s *Account) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (model.Account, error) {
	if update.Empty() {
		return s.Get(ctx, id)
	}

	var account model.Account
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, stores model.Stores) error {
		current, err := stores.Accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if update.DisplayName != nil && *update.DisplayName != current.DisplayName {
			taken, err := stores.Accounts.ExistsByDisplayName(ctx, *update.DisplayName)
			if err != nil {
				return fmt.Errorf("failed to check display name: %w", err)
			}
			if taken {
				return model.ErrDisplayNameTaken
			}
		}

		account, err = stores.Accounts.UpdateProfile(ctx, id, update)
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrDisplayNameTaken) {
			return model.Account{}, err
		}
		s.logger.Error("Account service: failed to update profile",
			"account_id", id,
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("Account service: profile updated", "account_id", id)
	return account, nil
}

// UploadAvatar stores the image and points the account's avatar at it.
func (s *Account) UploadAvatar(ctx context.Context, id uuid.UUID, contentType string, body io.Reader, size int64) (model.Account, error) {
	if s.storage == nil {
		return model.Account{}, model.ErrStorageDisabled
	}
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return model.Account{}, model.ErrUnsupportedImage
	}

	if _, err := s.Get(ctx, id); err != nil {
		return model.Account{}, err
	}

	key := fmt.Sprintf("avatars/%s/%s%s", id, uuid.NewString(), ext)
	if err := s.storage.Upload(ctx, key, contentType, body, size); err != nil {
		s.logger.Error("Account service: failed to upload avatar",
			"account_id", id,
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to upload avatar: %w", err)
	}

	url := s.storage.URL(key)
	account, err := s.UpdateProfile(ctx, id, model.ProfileUpdate{AvatarURL: &url})
	if err != nil {
		if derr := s.storage.Delete(ctx, key); derr != nil {
			s.logger.Warn("Account service: failed to remove orphaned avatar",
				"key", key,
				"error", derr.Error())
		}
		return model.Account{}, err
	}

	return account, nil
}
