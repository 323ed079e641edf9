package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/paraje-tours/reservas/backend/internal/domain"
)

// paidQueue is the durable queue payment-confirmed events are published to.
// Downstream consumers (survey mailer, reporting) bind to it by name.
const paidQueue = "reservation.paid"

// PaidEvent is the message body published when a reservation is confirmed.
type PaidEvent struct {
	ReservationID string    `json:"reservation_id"`
	ActivityName  string    `json:"activity_name"`
	HolderName    string    `json:"holder_name"`
	Email         string    `json:"email"`
	PartySize     int       `json:"party_size"`
	AmountCents   int       `json:"amount_cents"`
	CheckinCode   string    `json:"checkin_code"`
	StartAt       time.Time `json:"start_at"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// Publisher emits reservation.paid events to RabbitMQ.
//
// It dials per publish: confirmations happen a handful of times a day, so a
// held-open channel buys nothing and a broker restart can never leave the
// process with a dead connection. Failures are returned for the caller to
// log; the confirm flow treats them as retryable, never fatal.
type Publisher struct {
	url string
}

// NewPublisher constructs a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// PaymentConfirmed publishes a persistent PaidEvent to the durable queue.
func (p *Publisher) PaymentConfirmed(ctx context.Context, res domain.ReservationDetail, code string) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("notify.Publisher: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("notify.Publisher: channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Declare is idempotent; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(paidQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("notify.Publisher: queue declare: %w", err)
	}

	body, err := json.Marshal(PaidEvent{
		ReservationID: res.ID.String(),
		ActivityName:  res.ActivityName,
		HolderName:    res.HolderName,
		Email:         res.Email,
		PartySize:     res.PartySize,
		AmountCents:   res.AmountCents,
		CheckinCode:   code,
		StartAt:       res.StartAt,
		ConfirmedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("notify.Publisher: marshal: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", paidQueue, false, false, pub); err != nil {
		return fmt.Errorf("notify.Publisher: publish: %w", err)
	}
	return nil
}
