package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/itsmrshow/conduit/internal/logging"
)

// EmailNotifier sends plain-text mail through an SMTP relay, upgrading the
// connection with STARTTLS and authenticating with PLAIN auth.
type EmailNotifier struct {
	Server     string
	Port       int
	Username   string
	Password   string
	Sender     string
	Recipients []string

	// RequireTLS fails the send when the server does not offer STARTTLS.
	RequireTLS bool
	TLSConfig  *tls.Config
	Timeout    time.Duration
	Logger     *logging.Logger

	now func() time.Time
}

// Kind implements Notifier.
func (e *EmailNotifier) Kind() Kind { return KindEmail }

// Send delivers msg to all recipients in one SMTP transaction.
func (e *EmailNotifier) Send(ctx context.Context, msg Message) error {
	if e.Server == "" {
		return errors.New("smtp server missing")
	}
	if e.Sender == "" || len(e.Recipients) == 0 {
		return errors.New("email sender and recipients are required")
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	port := e.Port
	if port == 0 {
		port = 587
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(e.Server, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, e.Server)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		cfg := e.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: e.Server, MinVersion: tls.VersionTLS12}
		}
		if err := client.StartTLS(cfg); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	} else if e.RequireTLS {
		return errors.New("server does not support STARTTLS")
	}

	if e.Username != "" {
		auth := smtp.PlainAuth("", e.Username, e.Password, e.Server)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	if err := client.Mail(e.Sender); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range e.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(e.buildMessage(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	// The message is queued once DATA is accepted.
	if err := client.Quit(); err != nil && e.Logger != nil {
		e.Logger.Warn().Err(err).Str("server", e.Server).Msg("SMTP QUIT failed after message was accepted")
	}
	return nil
}

func (e *EmailNotifier) buildMessage(msg Message) []byte {
	now := time.Now
	if e.now != nil {
		now = e.now
	}

	var b bytes.Buffer
	writeHeader := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	writeHeader("From", e.Sender)
	writeHeader("To", strings.Join(e.Recipients, ", "))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", now().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `text/plain; charset="utf-8"`)
	writeHeader("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
