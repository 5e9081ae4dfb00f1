package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"emabot/internal/report"
)

// EmailConfig holds the SMTP settings for the mail channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Email delivers reports over SMTP. Delivery failures are logged and
// dropped; the trading loop never blocks on mail.
type Email struct {
	cfg    EmailConfig
	symbol string
	log    zerolog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg EmailConfig, symbol string, log zerolog.Logger) *Email {
	return &Email{
		cfg:    cfg,
		symbol: symbol,
		log:    log.With().Str("component", "email").Logger(),
		send:   smtp.SendMail,
	}
}

func (e *Email) Notify(outcome report.Outcome) {
	subject := fmt.Sprintf("%s strategy trade report - %s", e.symbol, outcome.Timestamp.Format("2006-01-02"))
	e.deliver(subject, FormatOutcome(e.symbol, outcome))
}

func (e *Email) NotifyDailySummary(summary report.DailySummary, outcomes []report.Outcome) {
	subject := fmt.Sprintf("%s strategy daily summary - %s", e.symbol, summary.Date.Format("2006-01-02"))
	e.deliver(subject, FormatDailySummary(e.symbol, summary, outcomes))
}

func (e *Email) NotifyFailure(description string) {
	now := time.Now()
	subject := fmt.Sprintf("%s strategy failure - %s", e.symbol, now.Format("2006-01-02 15:04"))
	e.deliver(subject, FormatFailure(e.symbol, description, now))
}

func (e *Email) deliver(subject, body string) {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		e.cfg.From, e.cfg.To, subject, body)

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	if err := e.send(addr, auth, e.cfg.From, []string{e.cfg.To}, []byte(msg)); err != nil {
		e.log.Error().Err(err).Str("subject", subject).Msg("send mail failed")
		return
	}
	e.log.Info().Str("subject", subject).Msg("mail sent")
}
