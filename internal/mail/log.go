package mail

import (
	"context"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/model"
)

var _ model.Mailer = (*Log)(nil)

// Log writes verification codes to the application log instead of sending
// them. Used in development when no SMTP credentials are configured.
type Log struct {
	logger *logger.Logger
}

// NewLog returns a Log mailer.
func NewLog(logger *logger.Logger) *Log {
	return &Log{logger: logger}
}

// SendVerificationCode logs the code.
func (m *Log) SendVerificationCode(_ context.Context, toEmail, displayName, code string) error {
	m.logger.Warn("Log mailer: verification code (development mode)",
		"to", toEmail,
		"display_name", displayName,
		"code", code)
	return nil
}
