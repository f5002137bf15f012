package model

import "context"

// Mailer delivers verification codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, toEmail, displayName, code string) error
}
