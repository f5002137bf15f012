package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/testutil"
)

func TestSMTP_SendVerificationCode(t *testing.T) {
	m, err := NewSMTP(SMTPConfig{
		Server:   "smtp.example.com",
		Port:     587,
		Username: "bot@example.com",
		Password: "app-password",
		CodeTTL:  10 * time.Minute,
	}, testutil.MakeNoopLogger())
	require.NoError(t, err)

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
	)
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err = m.SendVerificationCode(context.Background(), "user@example.com", "<trader>", "123456")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "bot@example.com", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.Contains(t, msg, "From: bot@example.com\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?UTF-8?b?")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "123456")
	assert.Contains(t, msg, "10분간")
	assert.Contains(t, msg, "&lt;trader&gt;")
	assert.NotContains(t, msg, "<trader>")
}

func TestSMTP_SendVerificationCode_Error(t *testing.T) {
	m, err := NewSMTP(SMTPConfig{Server: "smtp.example.com", Port: 587, From: "noreply@example.com"}, testutil.MakeNoopLogger())
	require.NoError(t, err)
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err = m.SendVerificationCode(context.Background(), "user@example.com", "trader", "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSMTP_SendVerificationCode_CanceledContext(t *testing.T) {
	m, err := NewSMTP(SMTPConfig{Server: "smtp.example.com", Port: 587}, testutil.MakeNoopLogger())
	require.NoError(t, err)
	called := false
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.SendVerificationCode(ctx, "user@example.com", "trader", "123456")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLog_SendVerificationCode(t *testing.T) {
	var buf bytes.Buffer
	m := NewLog(logger.NewWithWriter(&buf, 0))

	require.NoError(t, m.SendVerificationCode(context.Background(), "user@example.com", "trader", "654321"))
	assert.Contains(t, buf.String(), "to=user@example.com")
	assert.Contains(t, buf.String(), "code=654321")
}
