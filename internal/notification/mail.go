package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/paywave/paywave/internal/money"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	mailTimeout  = 10 * time.Second
	sendAttempts = 3
)

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"naira": money.Format,
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006 15:04") },
}).ParseFS(templateFS, "templates/*.tmpl"))

// MailClient is the part of *mail.Client the sender uses.
type MailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// MailSender renders notifications as plain-text email.
type MailSender struct {
	client  MailClient
	from    string
	backoff time.Duration
}

// NewMailSender dials an SMTP relay with the given credentials.
func NewMailSender(host string, port int, username, password, from string) (*MailSender, error) {
	opts := []mail.Option{
		mail.WithTimeout(mailTimeout),
		mail.WithPort(port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password))
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &MailSender{client: client, from: from, backoff: 2 * time.Second}, nil
}

// Send renders and delivers message, retrying transient failures.
func (s *MailSender) Send(ctx context.Context, message Message) error {
	msg, err := s.render(message)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		err = s.client.DialAndSendWithContext(ctx, msg)
		if err == nil || attempt == sendAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
}

func (s *MailSender) render(message Message) (*mail.Msg, error) {
	var (
		name string
		data any
	)
	switch message.Kind {
	case KindBalanceAlert:
		name, data = "balance_alert", message.BalanceAlert
	case KindOneTimeCode:
		name, data = "one_time_code", message.OneTimeCode
	default:
		return nil, fmt.Errorf("notification: no template for kind %q", message.Kind)
	}

	subject := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(subject, name+".subject", data); err != nil {
		return nil, err
	}
	body := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(body, name+".body", data); err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, err
	}
	if err := msg.To(message.Recipient); err != nil {
		return nil, err
	}
	msg.Subject(subject.String())
	msg.SetBodyString(mail.TypeTextPlain, body.String())
	return msg, nil
}
