package smtp

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/go-auth-gate/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return m.send(addr, auth, m.from, []string{to}, []byte(msg))
}

// OTPSender delivers sign-in codes by email.
type OTPSender struct {
	mailer Mailer
}

func NewOTPSender(m Mailer) *OTPSender {
	return &OTPSender{mailer: m}
}

func (s *OTPSender) SendOTP(to, code string, ttl time.Duration) error {
	body := fmt.Sprintf("Your sign-in code is %s.\r\nIt expires in %d minutes and can be used once.\r\n", code, int(ttl.Minutes()))
	if err := s.mailer.SendEmail(to, "Your sign-in code", body); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}
