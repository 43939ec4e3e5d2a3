// Package notify delivers lifecycle emails over SMTP. When email is disabled
// in configuration the mailer degrades to a logging no-op so the rest of the
// system never has to branch on it.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/josephasare/virtual-card-service/internal/config"
	"github.com/josephasare/virtual-card-service/internal/domain"
)

type Mailer struct {
	client     *mail.Client
	from       string
	adminEmail string
	enabled    bool
	logger     *slog.Logger
}

func NewMailer(cfg config.EmailConfig, logger *slog.Logger) (*Mailer, error) {
	m := &Mailer{
		from:       cfg.From,
		adminEmail: cfg.AdminEmail,
		enabled:    cfg.Enabled,
		logger:     logger,
	}
	if !cfg.Enabled {
		return m, nil
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	m.client = client
	return m, nil
}

func (m *Mailer) RequestSubmitted(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	subject := fmt.Sprintf("New card request from %s", student.Name)
	body := fmt.Sprintf(`<h2>New Virtual Card Request</h2>
<p><strong>Student:</strong> %s (%s)</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Phone:</strong> %s</p>
<p><strong>Amount:</strong> USD %s (GHS %s total)</p>
<p><strong>Reference:</strong> %s</p>`,
		student.Name, student.StudentID, student.Email, student.Phone,
		req.RequestedAmount.StringFixed(2), req.TotalLocalAmount.StringFixed(2),
		req.PaymentReference)
	return m.send(ctx, m.adminEmail, subject, body)
}

func (m *Mailer) PaymentConfirmed(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	subject := fmt.Sprintf("Payment received for request %s", req.RequestToken)
	body := fmt.Sprintf(`<h2>Payment Confirmed</h2>
<p>Payment for the card request below has been confirmed. The card can now be assigned.</p>
<p><strong>Student:</strong> %s (%s)</p>
<p><strong>Request token:</strong> %s</p>
<p><strong>Amount paid:</strong> GHS %s</p>`,
		student.Name, student.StudentID, req.RequestToken, req.TotalLocalAmount.StringFixed(2))
	return m.send(ctx, m.adminEmail, subject, body)
}

func (m *Mailer) CardAssigned(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	expiresAt := "soon"
	if req.CardExpiresAt != nil {
		expiresAt = req.CardExpiresAt.Format("Jan 2, 2006 at 3:04 PM")
	}
	subject := "Your virtual card is ready"
	body := fmt.Sprintf(`<h2>Your Virtual Card Is Ready</h2>
<p>Hi %s,</p>
<p>Your virtual card for USD %s has been assigned. Sign in with your request
token <strong>%s</strong> to view the card details.</p>
<p>The card is valid until <strong>%s</strong>. Complete your purchase before then.</p>`,
		student.Name, req.RequestedAmount.StringFixed(2), req.RequestToken, expiresAt)
	return m.send(ctx, student.Email, subject, body)
}

func (m *Mailer) CardExpired(ctx context.Context, student *domain.Student, req *domain.CardRequest) error {
	subject := "Your virtual card has expired"
	body := fmt.Sprintf(`<h2>Virtual Card Expired</h2>
<p>Hi %s,</p>
<p>The virtual card for request <strong>%s</strong> was not used within its
validity window and has expired. Please contact support if you still need a card.</p>`,
		student.Name, req.RequestToken)
	return m.send(ctx, student.Email, subject, body)
}

func (m *Mailer) ContactReceived(ctx context.Context, msg *domain.ContactMessage) error {
	subject := fmt.Sprintf("Contact form: %s", msg.Subject)
	body := fmt.Sprintf(`<h2>New Contact Message</h2>
<p><strong>From:</strong> %s (%s)</p>
<p><strong>Subject:</strong> %s</p>
<p>%s</p>`,
		msg.Name, msg.Email, msg.Subject, msg.Message)
	return m.send(ctx, m.adminEmail, subject, body)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.enabled {
		m.logger.Debug("email disabled, skipping send", "to", to, "subject", subject)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
