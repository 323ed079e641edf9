// Package notify provides implementations of the payment-confirmed
// notification hook (service.Notifier): an SMTP mailer, an AMQP event
// publisher, a fan-out combinator, and a log-only fallback.
//
// All implementations treat delivery as best-effort. Errors are returned to
// the caller (the booking service), which logs them and leaves the
// retry-on-next-confirm marker unset; nothing here may panic or block beyond
// one delivery attempt.
package notify

import (
	"context"
	"log/slog"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// Log is the fallback notifier used when neither SMTP nor AMQP is configured.
// It records the confirmation in the server log so a dev environment still
// shows the code that would have been sent.
type Log struct {
	Logger *slog.Logger
}

// PaymentConfirmed writes one structured log line and always succeeds.
func (l Log) PaymentConfirmed(_ context.Context, res domain.ReservationDetail, code string) error {
	log := l.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("payment confirmed (no notifier configured)",
		"reservation_id", res.ID,
		"email", res.Email,
		"checkin_code", code,
	)
	return nil
}

// Multi fans a confirmation out to several notifiers. The first failure wins:
// delivery stops and the error is returned, so paid_email_sent_at stays unset
// and the whole set is retried on the next confirm. Notifiers must therefore
// tolerate duplicate delivery, which both the mailer and the publisher do.
type Multi []interface {
	PaymentConfirmed(ctx context.Context, res domain.ReservationDetail, code string) error
}

// PaymentConfirmed delivers to each notifier in order.
func (m Multi) PaymentConfirmed(ctx context.Context, res domain.ReservationDetail, code string) error {
	for _, n := range m {
		if err := n.PaymentConfirmed(ctx, res, code); err != nil {
			return err
		}
	}
	return nil
}
