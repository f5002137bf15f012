// Package mail delivers verification codes to users.
package mail

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/model"
)

// Subject is the subject line of verification emails.
const Subject = "[Black Market] 이메일 인증 코드"

//go:embed template.html
var verificationTemplate string

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
	// CodeTTL is shown to the recipient.
	CodeTTL time.Duration
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

var _ model.Mailer = (*SMTP)(nil)

// SMTP sends HTML verification emails through an authenticated SMTP relay.
// smtp.SendMail upgrades the connection with STARTTLS when offered.
type SMTP struct {
	cfg    SMTPConfig
	tmpl   *template.Template
	send   sendFunc
	logger *logger.Logger
}

// NewSMTP parses the message template and returns an SMTP mailer.
func NewSMTP(cfg SMTPConfig, logger *logger.Logger) (*SMTP, error) {
	tmpl, err := template.New("verification").Parse(verificationTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verification template: %w", err)
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	return &SMTP{cfg: cfg, tmpl: tmpl, send: smtp.SendMail, logger: logger}, nil
}

// SendVerificationCode renders and sends the verification email.
func (m *SMTP) SendVerificationCode(ctx context.Context, toEmail, displayName, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.render(toEmail, displayName, code)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Server, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Server)

	if err := m.send(addr, auth, m.cfg.From, []string{toEmail}, msg); err != nil {
		m.logger.Error("SMTP mailer: failed to send verification email",
			"to", toEmail,
			"error", err.Error())
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info("SMTP mailer: verification email sent", "to", toEmail)
	return nil
}

func (m *SMTP) render(toEmail, displayName, code string) ([]byte, error) {
	minutes := int(m.cfg.CodeTTL / time.Minute)
	if minutes <= 0 {
		minutes = 10
	}

	var body bytes.Buffer
	err := m.tmpl.Execute(&body, struct {
		DisplayName  string
		Code         string
		ValidMinutes int
	}{displayName, code, minutes})
	if err != nil {
		return nil, fmt.Errorf("failed to render verification email: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", toEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}
