// Package notify delivers order lifecycle notifications on a best-effort
// basis. Events are queued and drained by a worker pool; a full queue or a
// failed send is logged and dropped, never surfaced to the operation that
// triggered it.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ovenlight/pizzatrack/internal/domain/order"
)

// Message is one rendered notification ready for delivery.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender performs the actual outbound delivery of a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes notifications to the log instead of an outbound channel.
// It stands in for the mail/SMS integration, which lives outside this
// service.
type LogSender struct {
	lg *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(lg *zap.Logger) *LogSender {
	return &LogSender{lg: lg}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.lg.Info("notification",
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// staffRecipient is the well-known routing target for operational alerts.
const staffRecipient = "staff"

var _ order.Notifier = (*Dispatcher)(nil)

// Dispatcher implements order.Notifier with a bounded queue and a fixed
// worker pool. Enqueueing never blocks the caller.
type Dispatcher struct {
	lg      *zap.Logger
	sender  Sender
	queue   chan Message
	workers int
}

// NewDispatcher creates a Dispatcher. queueSize bounds the number of
// undelivered messages held in memory; workers is the delivery concurrency.
func NewDispatcher(lg *zap.Logger, sender Sender, queueSize, workers int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Dispatcher{
		lg:      lg,
		sender:  sender,
		queue:   make(chan Message, queueSize),
		workers: workers,
	}
}

// Run drains the queue until ctx is cancelled. It always returns nil: send
// failures are logged per message, not propagated.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for range d.workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case msg := <-d.queue:
					if err := d.sender.Send(ctx, msg); err != nil {
						d.lg.Error("notification delivery failed",
							zap.String("recipient", msg.Recipient),
							zap.String("subject", msg.Subject),
							zap.Error(err),
						)
					}
				}
			}
		})
	}
	return g.Wait()
}

// OrderCreated notifies the owner that their order was placed.
func (d *Dispatcher) OrderCreated(_ context.Context, o *order.Order) {
	d.enqueue(Message{
		Recipient: o.OwnerID,
		Subject:   fmt.Sprintf("Order placed: #%s", o.Number),
		Body: fmt.Sprintf("Your %s %s pizza order (x%d) for %s is placed. Track it with code %s.",
			o.Config.Size, o.Config.Base, o.Config.Quantity, o.Pricing.TotalPrice.StringFixed(0), o.Number),
	})
}

// StatusChanged notifies the owner of a status transition.
func (d *Dispatcher) StatusChanged(_ context.Context, o *order.Order, previous order.Status, notes string) {
	body := fmt.Sprintf("Your order #%s moved from %s to %s.", o.Number, previous, o.Status)
	if o.Status == order.StatusConfirmed && o.EstimatedDeliveryAt != nil {
		body += fmt.Sprintf(" Estimated delivery: %s.", o.EstimatedDeliveryAt.Format("15:04"))
	}
	if notes != "" {
		body += " " + notes
	}
	d.enqueue(Message{
		Recipient: o.OwnerID,
		Subject:   fmt.Sprintf("Order #%s is now %s", o.Number, o.Status),
		Body:      body,
	})
}

// StaffAlert routes an operational event to staff.
func (d *Dispatcher) StaffAlert(_ context.Context, o *order.Order, event string) {
	d.enqueue(Message{
		Recipient: staffRecipient,
		Subject:   fmt.Sprintf("%s: #%s", event, o.Number),
		Body: fmt.Sprintf("Order #%s (%s, %s %s x%d) from customer %s.",
			o.Number, o.Status, o.Config.Size, o.Config.Base, o.Config.Quantity, o.OwnerID),
	})
}

func (d *Dispatcher) enqueue(msg Message) {
	select {
	case d.queue <- msg:
	default:
		d.lg.Warn("notification queue full, dropping",
			zap.String("recipient", msg.Recipient),
			zap.String("subject", msg.Subject),
		)
	}
}
