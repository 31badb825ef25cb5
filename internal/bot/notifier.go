package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/example/zinibot/internal/models"
	"github.com/example/zinibot/internal/store"
)

// ErrQueueFull is returned by Enqueue when the notification queue is saturated.
var ErrQueueFull = errors.New("notification queue full")

const notifyQueueSize = 256

// sender is the part of the telebot API the notifier needs.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Task carries one terminal payment outcome from a webhook goroutine into the
// notifier loop.
type Task struct {
	Record models.PaymentRecord
}

// Notifier is the only sanctioned path for sending chat messages from outside
// the bot's own handlers. Webhook goroutines enqueue tasks; a single consumer
// goroutine owns every outbound send, so the bot API is never touched
// concurrently. The queue is buffered, which also covers tasks enqueued
// before Run has started.
type Notifier struct {
	api   sender
	store *store.Store
	queue chan Task
}

// NewNotifier creates a Notifier sending through api and cleaning up records
// in st after delivery.
func NewNotifier(api sender, st *store.Store) *Notifier {
	return &Notifier{
		api:   api,
		store: st,
		queue: make(chan Task, notifyQueueSize),
	}
}

// Enqueue schedules a notification and returns immediately. It never blocks
// the calling goroutine; a full queue is reported as ErrQueueFull and the
// caller treats it as a delivery failure.
func (n *Notifier) Enqueue(t Task) error {
	select {
	case n.queue <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run consumes queued tasks until ctx is cancelled. One delivery attempt is
// made per task; failures are logged and never retried, the record's terminal
// state in the store stays authoritative either way.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-n.queue:
			n.dispatch(t)
		}
	}
}

func (n *Notifier) dispatch(t Task) {
	rec := t.Record

	text := composeOutcomeMessage(rec)
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if rec.MessageID != 0 {
		opts.ReplyTo = &tele.Message{ID: rec.MessageID, Chat: &tele.Chat{ID: rec.ChatID}}
	}

	if _, err := n.api.Send(tele.ChatID(rec.ChatID), text, opts); err != nil {
		log.Printf("[Notifier] Failed to deliver %s notification for %s to chat %d: %v",
			rec.Status, rec.ID, rec.ChatID, err)
	} else {
		log.Printf("[Notifier] Sent %s notification for %s to chat %d", rec.Status, rec.ID, rec.ChatID)
	}

	n.store.Remove(rec.ID)
}

func composeOutcomeMessage(rec models.PaymentRecord) string {
	switch rec.Status {
	case models.PaymentStatusPaid:
		var b strings.Builder
		b.WriteString("✅ <b>Payment Successful!</b>\n\n")
		fmt.Fprintf(&b, "💰 <b>Amount:</b> %.2f BDT\n", rec.Amount)
		if txn := rec.GatewayMeta["transactionId"]; txn != "" {
			fmt.Fprintf(&b, "🔖 <b>Transaction ID:</b> %s\n", txn)
		}
		if method := rec.GatewayMeta["paymentMethod"]; method != "" {
			fmt.Fprintf(&b, "💳 <b>Payment Method:</b> %s\n", strings.ToUpper(method))
		}
		fmt.Fprintf(&b, "⏰ <b>Time:</b> %s\n", time.Now().Format("2006-01-02 15:04:05"))
		b.WriteString("\nThank you for your payment!")
		return b.String()
	case models.PaymentStatusFailed:
		return fmt.Sprintf(`❌ <b>Payment Failed</b>

💰 <b>Amount:</b> %.2f BDT

Your payment could not be completed.
Send /pay %.2f to try again.`, rec.Amount, rec.Amount)
	case models.PaymentStatusCancelled:
		return fmt.Sprintf(`❌ <b>Payment Cancelled</b>

💰 <b>Amount:</b> %.2f BDT

Your payment was cancelled. No charges have been made.
If you want to retry, send /pay %.2f again.`, rec.Amount, rec.Amount)
	default:
		return fmt.Sprintf("Payment %s is now %s.", rec.ID, rec.Status)
	}
}
