package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/Crush-on-Study/Black-Market/internal/model"
	"github.com/Crush-on-Study/Black-Market/internal/service"
)

type requestVerificationRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type verifyEmailRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

type setupUserRequest struct {
	VerificationToken string  `json:"verification_token"`
	Email             string  `json:"email"`
	DisplayName       string  `json:"display_name"`
	Password          string  `json:"password"`
	ProfileImageURL   *string `json:"profile_image_url"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileRequest struct {
	DisplayName     *string `json:"display_name"`
	ProfileImageURL *string `json:"profile_image_url"`
}

type messageResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type verifyEmailResponse struct {
	Message           string `json:"message"`
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
}

type userResponse struct {
	ID              uuid.UUID  `json:"user_id"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"display_name"`
	ProfileImageURL *string    `json:"profile_image_url"`
	PointsBalance   string     `json:"points_balance"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type sessionResponse struct {
	User userResponse `json:"user"`
	tokenPairResponse
	Message string `json:"message,omitempty"`
}

type logoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func toUserResponse(a model.Account) userResponse {
	return userResponse{
		ID:              a.ID,
		Email:           a.Email,
		DisplayName:     a.DisplayName,
		ProfileImageURL: a.AvatarURL,
		PointsBalance:   a.PointsBalance,
		CreatedAt:       a.CreatedAt,
		LastLoginAt:     a.LastLoginAt,
	}
}

func toTokenPairResponse(p service.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
	}
}

func toSessionResponse(s service.Session, message string) sessionResponse {
	return sessionResponse{
		User:              toUserResponse(s.Account),
		tokenPairResponse: toTokenPairResponse(s.TokenPair),
		Message:           message,
	}
}
