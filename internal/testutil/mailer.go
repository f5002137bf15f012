package testutil

import (
	"context"
	"sync"
)

// SentCode is a verification code captured by CapturingMailer.
type SentCode struct {
	Email       string
	DisplayName string
	Code        string
}

// CapturingMailer records every dispatched code. Err, when set, is returned
// instead of recording.
type CapturingMailer struct {
	mu   sync.Mutex
	sent []SentCode
	Err  error
}

// SendVerificationCode implements model.Mailer.
func (m *CapturingMailer) SendVerificationCode(_ context.Context, toEmail, displayName, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentCode{Email: toEmail, DisplayName: displayName, Code: code})
	return nil
}

// Last returns the most recent code sent to email.
func (m *CapturingMailer) Last(email string) (SentCode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Email == email {
			return m.sent[i], true
		}
	}
	return SentCode{}, false
}

// Count returns the number of recorded dispatches.
func (m *CapturingMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
