package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var ErrNoRecipients = errors.New("email: at least one recipient is required")

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SendFunc matches smtp.SendMail so tests can capture outgoing mail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPProvider struct {
	cfg  Config
	send SendFunc
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg, send: smtp.SendMail}
}

// WithSendFunc replaces the transport.
func (p *SMTPProvider) WithSendFunc(fn SendFunc) *SMTPProvider {
	p.send = fn
	return p
}

func (p *SMTPProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if len(to) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	return p.send(addr, auth, p.cfg.From, to, p.buildMessage(to, subject, htmlBody))
}

// SendTemplate renders templates/<templateName>.html with data. A
// "subject" entry in a map[string]any overrides the default subject.
func (p *SMTPProvider) SendTemplate(ctx context.Context, to []string, templateName string, data any) error {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := "orgadmin notification"
	if dataMap, ok := data.(map[string]any); ok {
		if subj, ok := dataMap["subject"].(string); ok && subj != "" {
			subject = subj
		}
	}
	return p.Send(ctx, to, subject, body.String())
}

func (p *SMTPProvider) buildMessage(to []string, subject, htmlBody string) []byte {
	from := (&mail.Address{Name: p.cfg.FromName, Address: p.cfg.From}).String()

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	msg.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return []byte(msg.String())
}
