package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/model"
)

// DefaultMaxAvatarBytes bounds avatar uploads when no limit is configured.
const DefaultMaxAvatarBytes int64 = 5 << 20

// AccountService defines profile operations for the authenticated account.
type AccountService interface {
	Get(ctx context.Context, id uuid.UUID) (model.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (model.Account, error)
	UploadAvatar(ctx context.Context, id uuid.UUID, contentType string, body io.Reader, size int64) (model.Account, error)
}

// Account handles the /users/me endpoints.
type Account struct {
	accountService AccountService
	contextManager model.ContextManager
	maxBodyBytes   int64
	maxAvatarBytes int64
	logger         *logger.Logger
}

// NewAccount creates a new Account handler.
func NewAccount(
	accountService AccountService,
	contextManager model.ContextManager,
	maxBodyBytes int64,
	maxAvatarBytes int64,
	logger *logger.Logger,
) *Account {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = DefaultMaxAvatarBytes
	}
	return &Account{
		accountService: accountService,
		contextManager: contextManager,
		maxBodyBytes:   maxBodyBytes,
		maxAvatarBytes: maxAvatarBytes,
		logger:         logger,
	}
}

// Me returns the authenticated account.
func (h *Account) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.contextManager.GetAccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, model.ErrMalformedToken)
		return
	}

	account, err := h.accountService.Get(r.Context(), accountID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(account))
}

// UpdateMe changes the supplied profile fields.
func (h *Account) UpdateMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.contextManager.GetAccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, model.ErrMalformedToken)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.DisplayName != nil {
		if err := requireFields(map[string]string{"display_name": *req.DisplayName}); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	account, err := h.accountService.UpdateProfile(r.Context(), accountID, model.ProfileUpdate{
		DisplayName: req.DisplayName,
		AvatarURL:   req.ProfileImageURL,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Account handler: profile updated",
		"account_id", accountID)
	writeJSON(w, http.StatusOK, toUserResponse(account))
}

// UploadAvatar stores the raw request body as the account's profile image.
func (h *Account) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.contextManager.GetAccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, model.ErrMalformedToken)
		return
	}

	if r.ContentLength <= 0 {
		writeError(w, r, h.logger, badRequest("content length is required"))
		return
	}
	if r.ContentLength > h.maxAvatarBytes {
		writeError(w, r, h.logger, badRequest("image exceeds %d bytes", h.maxAvatarBytes))
		return
	}

	body := http.MaxBytesReader(w, r.Body, h.maxAvatarBytes)
	account, err := h.accountService.UploadAvatar(r.Context(), accountID, r.Header.Get("Content-Type"), body, r.ContentLength)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(account))
}
