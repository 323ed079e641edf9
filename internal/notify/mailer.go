package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// MailerConfig holds the SMTP settings for the confirmation mailer.
// User may be empty for servers that accept unauthenticated relay on the
// local network.
type MailerConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Mailer sends the payment-confirmation email carrying the check-in code.
// One message per confirmation; the booking service's paid_email_sent_at
// marker keeps delivery at-most-once per reservation.
type Mailer struct {
	cfg MailerConfig
}

// NewMailer constructs a Mailer from config.
func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// PaymentConfirmed emails the guest their confirmation and check-in code.
// A reservation without a contact email is skipped silently — booking does
// not require one, and there is nobody to write to.
func (m *Mailer) PaymentConfirmed(_ context.Context, res domain.ReservationDetail, code string) error {
	if res.Email == "" {
		return nil
	}

	msg := buildConfirmationMessage(m.cfg.From, res, code)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{res.Email}, msg); err != nil {
		return fmt.Errorf("notify.Mailer: send to %s: %w", res.Email, err)
	}
	return nil
}

// buildConfirmationMessage renders the plain-text confirmation mail.
func buildConfirmationMessage(from string, res domain.ReservationDetail, code string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", res.Email)
	fmt.Fprintf(&b, "Subject: Payment confirmed - Reservation %s\r\n", res.ID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", res.HolderName)
	b.WriteString("Your payment has been confirmed for the following reservation:\r\n\r\n")
	fmt.Fprintf(&b, "  Activity:    %s\r\n", res.ActivityName)
	fmt.Fprintf(&b, "  Reservation: %s\r\n", res.ID)
	fmt.Fprintf(&b, "  Schedule:    %s\r\n", res.StartAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "  People:      %d\r\n", res.PartySize)
	fmt.Fprintf(&b, "  Amount paid: $%.2f\r\n\r\n", float64(res.AmountCents)/100)
	fmt.Fprintf(&b, "Your check-in code is:\r\n\r\n    %s\r\n\r\n", code)
	b.WriteString("Keep this message and show it on arrival. Staff can verify the\r\n")
	b.WriteString("code directly in the reservation system.\r\n")
	fmt.Fprintf(&b, "\r\nSent %s\r\n", time.Now().UTC().Format(time.RFC1123))

	return []byte(b.String())
}
