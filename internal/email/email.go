package email

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
)

const subject = "Your sign-in link"

var body = template.Must(template.New("magic-link").Parse(
	`<p>Click the link below to sign in. It can be used once and expires {{.Expires}}.</p>` +
		`<p><a href="{{.Link}}">{{.Link}}</a></p>`,
))

// Deliverer hands a sign-in link to its owner. Implementations decide how.
type Deliverer interface {
	Deliver(ctx context.Context, address, link string) error
}

// LogDeliverer logs the link instead of sending it. Used in ENV=local only.
type LogDeliverer struct {
	logger *slog.Logger
}

func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger.With("component", "email")}
}

func (d *LogDeliverer) Deliver(ctx context.Context, address, link string) error {
	d.logger.InfoContext(ctx, "magic link (local dev)", "to", address, "link", link)
	return nil
}

// ResendDeliverer sends the link through the Resend API.
type ResendDeliverer struct {
	client *resend.Client
	from   string
	expiry string
}

func NewResendDeliverer(apiKey, from, expiry string) *ResendDeliverer {
	return &ResendDeliverer{
		client: resend.NewClient(apiKey),
		from:   from,
		expiry: expiry,
	}
}

func (d *ResendDeliverer) Deliver(ctx context.Context, address, link string) error {
	html, err := render(link, d.expiry)
	if err != nil {
		return err
	}
	params := &resend.SendEmailRequest{
		From:    d.from,
		To:      []string{address},
		Subject: subject,
		Html:    html,
	}
	if _, err := d.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewDeliverer returns a LogDeliverer for ENV=local, ResendDeliverer otherwise.
// ttl is only used in the email copy.
func NewDeliverer(env, apiKey, from, ttl string, logger *slog.Logger) Deliverer {
	if env == "local" {
		return NewLogDeliverer(logger)
	}
	return NewResendDeliverer(apiKey, from, "in "+ttl)
}

func render(link, expiry string) (string, error) {
	var sb strings.Builder
	err := body.Execute(&sb, struct{ Link, Expires string }{Link: link, Expires: expiry})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return sb.String(), nil
}
