// Package notify delivers price-drop alerts over SMTP.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pricelens/backend/internal/domain"
	gomail "gopkg.in/mail.v2"
)

// EmailConfig holds SMTP configuration for sending alerts.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmail    string
	Enabled    bool
}

// EmailNotifier implements domain.Notifier over SMTP. When disabled it
// silently drops every alert, which keeps the tracker usable without an
// SMTP account.
type EmailNotifier struct {
	cfg EmailConfig
}

// NewEmailNotifier creates a notifier with the given SMTP configuration.
func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{cfg: cfg}
}

// NotifyPriceDrop sends a price-drop alert email.
func (n *EmailNotifier) NotifyPriceDrop(ctx context.Context, drop domain.PriceDrop) error {
	if !n.cfg.Enabled {
		log.Printf("[Notify] Email disabled, skipping alert for %q", drop.Product.Name)
		return nil
	}

	subject := fmt.Sprintf("Price drop: %s is now $%.2f", drop.Product.Name, drop.NewPrice)

	text := fmt.Sprintf(
		"%s dropped from $%.2f to $%.2f (save $%.2f, %.1f%% off).\n\n%s\n",
		drop.Product.Name, drop.OldPrice, drop.NewPrice,
		drop.Savings(), drop.Percent(), drop.Product.URL,
	)

	html := fmt.Sprintf(
		`<h2>Price drop detected</h2>
<p><strong>%s</strong></p>
<p>Was <del>$%.2f</del>, now <strong>$%.2f</strong> &mdash; save $%.2f (%.1f%% off).</p>
<p><a href="%s">View product</a></p>`,
		drop.Product.Name, drop.OldPrice, drop.NewPrice,
		drop.Savings(), drop.Percent(), drop.Product.URL,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", n.cfg.ToEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	dialer := gomail.NewDialer(n.cfg.SMTPServer, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	if err := dialer.DialAndSend(m); err != nil {
		log.Printf("[Notify] Failed to send alert to %s: %v", n.cfg.ToEmail, err)
		return fmt.Errorf("failed to send price drop alert: %w", err)
	}

	log.Printf("[Notify] Alert sent: %s", subject)
	return nil
}
