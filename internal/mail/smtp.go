package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	netmail "net/mail"
	gosmtp "net/smtp"
	"strconv"
	"time"

	"github.com/keyxmakerx/profilehub/internal/config"
)

const dialTimeout = 10 * time.Second

// SMTPSender sends mail through an SMTP relay using STARTTLS, implicit TLS
// or no encryption, per cfg.Encryption.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	from := netmail.Address{Name: s.cfg.FromName, Address: s.cfg.FromAddress}
	body := buildMessage(from, msg, time.Now())
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	client, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(from.Address); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", msg.To, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

// dial connects and, depending on the encryption mode, secures the session.
func (s *SMTPSender) dial(ctx context.Context, addr string) (*gosmtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: dialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.Encryption == "ssl" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	if s.cfg.Encryption == "starttls" {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("starting TLS: %w", err)
		}
	}
	return client, nil
}
