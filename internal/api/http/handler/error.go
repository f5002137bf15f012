package handler

import (
	"errors"
	"net/http"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/model"
	"github.com/Crush-on-Study/Black-Market/internal/observability"
)

// statusFor maps an error onto a response status and client-facing detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrEmailAlreadyRegistered):
		return http.StatusConflict, "이미 등록된 이메일입니다"
	case errors.Is(err, model.ErrDisplayNameTaken):
		return http.StatusConflict, "이미 사용 중인 닉네임입니다"
	case errors.Is(err, model.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest, "잘못된 인증 코드이거나 만료된 요청입니다"
	case errors.Is(err, model.ErrEmailMismatch):
		return http.StatusBadRequest, "토큰과 이메일이 일치하지 않습니다"
	case errors.Is(err, model.ErrInvalidVerification):
		return http.StatusBadRequest, "유효하지 않은 인증 정보입니다"
	case errors.Is(err, model.ErrDeliveryFailed):
		return http.StatusBadGateway, "이메일 전송에 실패했습니다"
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "이메일 또는 비밀번호가 올바르지 않습니다"
	case errors.Is(err, model.ErrInvalidRefreshToken),
		errors.Is(err, model.ErrExpiredToken),
		errors.Is(err, model.ErrWrongTokenType),
		errors.Is(err, model.ErrMalformedToken):
		return http.StatusUnauthorized, "invalid or expired token"
	case errors.Is(err, model.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, "unsupported image type"
	case errors.Is(err, model.ErrStorageDisabled):
		return http.StatusServiceUnavailable, "avatar storage is not configured"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError writes the mapped error response. Unexpected errors are logged
// and reported to Sentry.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		log.Error("HTTP handler: unexpected error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error())
		observability.CaptureError(r.Context(), err)
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}
