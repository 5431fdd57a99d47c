package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopledger/internal/domain/notifications"
	"shopledger/internal/platform/config"
)

const dialTimeout = 10 * time.Second

var headerSafe = strings.NewReplacer("\r", "", "\n", " ")

type smtpMailer struct {
	cfg config.Config
	now func() time.Time
}

// New returns an SMTP mailer for notification copies, or nil when mail is
// not configured.
func New(cfg config.Config) notifications.Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return nil
	}
	return &smtpMailer{cfg: cfg, now: time.Now}
}

func (s *smtpMailer) Send(ctx context.Context, m notifications.Mail) error {
	if strings.TrimSpace(m.To) == "" {
		return nil
	}
	client, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("smtp connect: %w", err)
	}
	defer client.Close()

	if err := client.Mail(m.From); err != nil {
		return fmt.Errorf("smtp sender: %w", err)
	}
	if err := client.Rcpt(m.To); err != nil {
		return fmt.Errorf("smtp recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(Compose(m, s.now())); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *smtpMailer) dial(ctx context.Context) (*smtp.Client, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.cfg.SMTPHost, fmt.Sprint(s.cfg.SMTPPort)))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if s.cfg.SMTPUseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			client.Close()
			return nil, err
		}
	}
	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}

// Subject prefixes the notification title with the shop it came from.
func Subject(m notifications.Mail) string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = "New notification"
	}
	if shop := strings.TrimSpace(m.ShopName); shop != "" {
		return fmt.Sprintf("[%s] %s", shop, title)
	}
	return title
}

// Compose renders a notification copy as a plain text message with CRLF
// line endings. Header values are stripped of line breaks.
func Compose(m notifications.Mail, now time.Time) []byte {
	headers := []string{
		"From: " + headerSafe.Replace(m.From),
		"To: " + headerSafe.Replace(m.To),
		"Subject: " + mime.QEncoding.Encode("utf-8", headerSafe.Replace(Subject(m))),
		"Date: " + now.Format(time.RFC1123Z),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), messageDomain(m.From)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"Content-Transfer-Encoding: 8bit",
	}
	if m.Type != "" {
		headers = append(headers, "X-Notification-Type: "+headerSafe.Replace(m.Type))
	}

	var b strings.Builder
	for _, h := range headers {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(crlf(strings.TrimSpace(m.Body)))
	b.WriteString("\r\n\r\n-- \r\n")
	b.WriteString(crlf(footer(m.ShopName)))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func footer(shopName string) string {
	if shop := strings.TrimSpace(shopName); shop != "" {
		return shop + " ledger\nSign in to see all of your notifications."
	}
	return "Sign in to see all of your notifications."
}

func messageDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return strings.Trim(from[i+1:], "> ")
	}
	return "localhost"
}

func crlf(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
