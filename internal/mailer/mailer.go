package mailer

import (
	"fmt"

	"livechat-backend/internal/env"

	"gopkg.in/gomail.v2"
)

// Config is re-read by the notifier once per sweep so SMTP settings can
// change without a restart.
type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func ConfigFromEnv() Config {
	return Config{
		Host: env.Get(env.SMTPHost),
		Port: env.GetInt(env.SMTPPort, 587),
		User: env.Get(env.SMTPUser),
		Pass: env.Get(env.SMTPPass),
		From: env.Get(env.SMTPFrom),
	}
}

func (c Config) Valid() bool {
	return c.Host != "" && c.From != ""
}

type Mailer interface {
	Send(cfg Config, to, subject, htmlBody string) error
}

type SMTPMailer struct{}

func NewSMTP() *SMTPMailer {
	return &SMTPMailer{}
}

func (m *SMTPMailer) Send(cfg Config, to, subject, htmlBody string) error {
	if !cfg.Valid() {
		return fmt.Errorf("mailer: smtp not configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}
