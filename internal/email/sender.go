// Package email delivers ad-hoc customer emails over SMTP.
package email

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"voicecrm_backend/platform/config"
)

const sendTimeout = 15 * time.Second

// bodyTemplate wraps the free-form message in a minimal HTML frame.
// template escaping keeps operator input from injecting markup.
var bodyTemplate = template.Must(template.New("body").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933; line-height: 1.5;">
<p>Beste {{.Name}},</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p>Met vriendelijke groet,<br>{{.From}}</p>
</body>
</html>`))

type bodyData struct {
	Name       string
	Paragraphs []string
	From       string
}

// Sender sends customer emails through the configured SMTP server.
type Sender struct {
	cfg config.EmailConfig
}

// NewSender creates an SMTP sender. Enabled reflects the configuration,
// so a sender built from an empty config is a safe no-op dependency.
func NewSender(cfg config.EmailConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Enabled reports whether SMTP delivery is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.GetEmailEnabled()
}

// Send delivers a single email to the customer.
func (s *Sender) Send(ctx context.Context, toName, toAddress, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.AddToFormat(toName, toAddress); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)

	html, err := renderBody(toName, body, s.cfg.GetEmailFromName())
	if err != nil {
		return err
	}
	msg.SetBodyString(gomail.TypeTextHTML, html)

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(),
		gomail.WithPort(s.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.GetSMTPUsername()),
		gomail.WithPassword(s.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(sendTimeout),
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

func renderBody(name, body, from string) (string, error) {
	var paragraphs []string
	for _, p := range strings.Split(body, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	var buf strings.Builder
	err := bodyTemplate.Execute(&buf, bodyData{Name: name, Paragraphs: paragraphs, From: from})
	if err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
