package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/metrics"
	"github.com/Crush-on-Study/Black-Market/internal/model"
	"github.com/Crush-on-Study/Black-Market/internal/service"
)

// AuthService defines the signup and session operations.
type AuthService interface {
	RequestVerification(ctx context.Context, email, displayName string) error
	ConfirmCode(ctx context.Context, email, code string) (string, error)
	CompleteSetup(ctx context.Context, params service.SetupParams) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// Auth handles the /auth endpoints.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	metrics        *metrics.Metrics
	codeTTL        time.Duration
	maxBodyBytes   int64
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler. codeTTL is only used in the message
// returned after a code is sent.
func NewAuth(
	authService AuthService,
	contextManager model.ContextManager,
	metrics *metrics.Metrics,
	codeTTL time.Duration,
	maxBodyBytes int64,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		metrics:        metrics,
		codeTTL:        codeTTL,
		maxBodyBytes:   maxBodyBytes,
		logger:         logger,
	}
}

// RequestVerification sends a verification code to an unregistered email.
func (h *Auth) RequestVerification(w http.ResponseWriter, r *http.Request) {
	var req requestVerificationRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireFields(map[string]string{"email": req.Email, "display_name": req.DisplayName}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	err := h.authService.RequestVerification(r.Context(), req.Email, req.DisplayName)
	h.record("request_verification", err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("인증 코드가 이메일로 전송되었습니다. %d분 내에 인증을 완료해주세요.", int(h.codeTTL.Minutes())),
		Email:   req.Email,
	})
}

// VerifyEmail confirms a code and returns a verification token.
func (h *Auth) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireFields(map[string]string{"email": req.Email, "verification_code": req.VerificationCode}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.authService.ConfirmCode(r.Context(), req.Email, req.VerificationCode)
	h.record("confirm_code", err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyEmailResponse{
		Message:           "이메일 인증이 완료되었습니다. 닉네임과 비밀번호를 설정해주세요.",
		Email:             req.Email,
		VerificationToken: token,
	})
}

// SetupUser creates the account and opens its first session.
func (h *Auth) SetupUser(w http.ResponseWriter, r *http.Request) {
	var req setupUserRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireFields(map[string]string{
		"verification_token": req.VerificationToken,
		"email":              req.Email,
		"password":           req.Password,
	}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.authService.CompleteSetup(r.Context(), service.SetupParams{
		VerificationToken: req.VerificationToken,
		Email:             req.Email,
		DisplayName:       req.DisplayName,
		Password:          req.Password,
		AvatarURL:         req.ProfileImageURL,
	})
	h.record("complete_setup", err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session, ""))
}

// Login opens a session for valid credentials.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireFields(map[string]string{"email": req.Email, "password": req.Password}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	h.record("login", err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session, "로그인 성공"))
}

// Refresh rotates a refresh token.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireFields(map[string]string{"refresh_token": req.RefreshToken}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	h.record("refresh", err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

// Logout revokes a refresh token. Unknown tokens are accepted.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	err := h.authService.Logout(r.Context(), req.RefreshToken)
	h.record("logout", err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated account.
func (h *Auth) LogoutAll(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.contextManager.GetAccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, model.ErrMalformedToken)
		return
	}

	revoked, err := h.authService.LogoutAll(r.Context(), accountID)
	h.record("logout_all", err)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, logoutAllResponse{Revoked: revoked})
}

func (h *Auth) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return decodeJSON(w, r, h.maxBodyBytes, dst)
}

func (h *Auth) record(operation string, err error) {
	if h.metrics != nil {
		h.metrics.RecordAuthOperation(operation, err)
	}
}
