// Package mail delivers the account emails sent by the local backend
// (sign-up confirmation and password recovery). SMTP settings come from the
// environment; without an SMTP host the message is logged instead, which is
// what development uses.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/keyxmakerx/profilehub/internal/config"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender for cfg, or a log sender when no host is set.
func New(cfg config.SMTPConfig) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		slog.Warn("SMTP_HOST is empty, account emails will be logged instead of sent")
		return LogSender{}
	}
	return &SMTPSender{cfg: cfg}
}

// LogSender writes messages to the log. Links in the body are logged too,
// so never use it in production.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "email not sent (no SMTP host)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// buildMessage renders an RFC 5322 message with a UTF-8 body and a
// MIME-encoded subject.
func buildMessage(from netmail.Address, msg Message, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from.String())
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.String()
}
