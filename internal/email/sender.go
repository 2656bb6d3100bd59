// Package email sends operational emails over SMTP.
package email

import (
	"context"
	"fmt"
	"html"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"callops_backend/platform/apperr"
	"callops_backend/platform/config"
)

// SMTPSender delivers mail via a direct SMTP connection using go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	enabled   bool
}

// NewSMTPSender creates a new SMTPSender from the email configuration.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		enabled:   cfg.IsEmailEnabled(),
	}
}

// ImportSummary is the content of one scheduled-import report email.
type ImportSummary struct {
	WindowHours  int
	Total        int
	Processed    int
	AttioUpdated int
	Errors       []string
}

// SendImportSummary mails the outcome of a scheduled call import to the ops
// address.
func (s *SMTPSender) SendImportSummary(ctx context.Context, toEmail string, summary ImportSummary) error {
	if !s.enabled {
		return apperr.Unavailable("smtp not configured")
	}
	if toEmail == "" {
		return apperr.Validation("recipient required")
	}

	subject := fmt.Sprintf("Call import: %d/%d processed, %d errors",
		summary.Processed, summary.Total, len(summary.Errors))
	return s.send(ctx, toEmail, subject, renderImportSummary(summary))
}

func renderImportSummary(summary ImportSummary) string {
	var b strings.Builder
	b.WriteString("<h2>Scheduled call import</h2>")
	fmt.Fprintf(&b, "<p>Window: last %d hours</p>", summary.WindowHours)
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Total calls: %d</li>", summary.Total)
	fmt.Fprintf(&b, "<li>Processed: %d</li>", summary.Processed)
	fmt.Fprintf(&b, "<li>CRM records updated: %d</li>", summary.AttioUpdated)
	fmt.Fprintf(&b, "<li>Errors: %d</li>", len(summary.Errors))
	b.WriteString("</ul>")
	if len(summary.Errors) > 0 {
		b.WriteString("<h3>Errors</h3><ul>")
		for _, e := range summary.Errors {
			// Error strings carry upstream API response text; escape them.
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(e))
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
