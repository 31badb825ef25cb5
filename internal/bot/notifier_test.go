package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/example/zinibot/internal/models"
	"github.com/example/zinibot/internal/store"
)

type sentMessage struct {
	to   tele.Recipient
	text string
	opts []interface{}
}

// fakeSender captures outbound sends instead of calling the Telegram API.
type fakeSender struct {
	mu    sync.Mutex
	sends []sentMessage
	err   error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, _ := what.(string)
	f.sends = append(f.sends, sentMessage{to: to, text: text, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	return &tele.Message{}, nil
}

func (f *fakeSender) Sends() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sends...)
}

func paidRecord(id string) models.PaymentRecord {
	now := time.Now()
	return models.PaymentRecord{
		ID:          id,
		ChatID:      42,
		MessageID:   17,
		RequesterID: 7,
		Amount:      150,
		Status:      models.PaymentStatusPaid,
		CreatedAt:   now,
		CompletedAt: &now,
		GatewayMeta: map[string]string{"transactionId": "txn-9", "paymentMethod": "bkash"},
	}
}

func TestDispatch_PaidOutcome_SendsReplyAndRemovesRecord(t *testing.T) {
	t.Parallel()

	st := store.New()
	rec := paidRecord("inv-1")
	if err := st.Insert(models.PaymentRecord{ID: rec.ID, Amount: rec.Amount, Status: models.PaymentStatusPending}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	sender := &fakeSender{}
	n := NewNotifier(sender, st)

	n.dispatch(Task{Record: rec})

	sends := sender.Sends()
	if len(sends) != 1 {
		t.Fatalf("expected one send, got %d", len(sends))
	}

	msg := sends[0]
	if chatID, ok := msg.to.(tele.ChatID); !ok || int64(chatID) != 42 {
		t.Errorf("expected send to chat 42, got %v", msg.to)
	}
	if !strings.Contains(msg.text, "150.00") {
		t.Errorf("expected amount in message, got %q", msg.text)
	}
	if !strings.Contains(msg.text, "txn-9") {
		t.Errorf("expected transaction id in message, got %q", msg.text)
	}
	if !strings.Contains(msg.text, "BKASH") {
		t.Errorf("expected payment method in message, got %q", msg.text)
	}

	if len(msg.opts) != 1 {
		t.Fatalf("expected send options, got %v", msg.opts)
	}
	opts, ok := msg.opts[0].(*tele.SendOptions)
	if !ok {
		t.Fatalf("expected *tele.SendOptions, got %T", msg.opts[0])
	}
	if opts.ReplyTo == nil || opts.ReplyTo.ID != 17 {
		t.Errorf("expected reply to the payment link message, got %+v", opts.ReplyTo)
	}

	if _, err := st.Get(rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected record to be removed after delivery, got %v", err)
	}
}

func TestDispatch_DeliveryFailure_LoggedNotRetried(t *testing.T) {
	t.Parallel()

	st := store.New()
	rec := paidRecord("inv-1")
	if err := st.Insert(models.PaymentRecord{ID: rec.ID, Amount: rec.Amount, Status: models.PaymentStatusPending}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	sender := &fakeSender{err: errors.New("chat not found")}
	n := NewNotifier(sender, st)

	n.dispatch(Task{Record: rec})

	if got := len(sender.Sends()); got != 1 {
		t.Fatalf("expected exactly one delivery attempt, got %d", got)
	}
	if _, err := st.Get(rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected record to be removed after the attempt, got %v", err)
	}
}

func TestNotifier_TasksEnqueuedBeforeRunAreDelivered(t *testing.T) {
	t.Parallel()

	st := store.New()
	sender := &fakeSender{}
	n := NewNotifier(sender, st)

	rec := paidRecord("inv-1")
	failed := paidRecord("inv-2")
	failed.Status = models.PaymentStatusFailed

	// The loop is not running yet; the buffered queue holds the tasks.
	if err := n.Enqueue(Task{Record: rec}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := n.Enqueue(Task{Record: failed}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	deadline := time.After(2 * time.Second)
	for len(sender.Sends()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 deliveries, got %d", len(sender.Sends()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	sends := sender.Sends()
	if !strings.Contains(sends[0].text, "Payment Successful") {
		t.Errorf("expected success message first, got %q", sends[0].text)
	}
	if !strings.Contains(sends[1].text, "Payment Failed") {
		t.Errorf("expected failure message second, got %q", sends[1].text)
	}
}

func TestEnqueue_FullQueue_ReturnsError(t *testing.T) {
	t.Parallel()

	n := NewNotifier(&fakeSender{}, store.New())

	for i := 0; i < notifyQueueSize; i++ {
		if err := n.Enqueue(Task{Record: paidRecord("inv")}); err != nil {
			t.Fatalf("enqueue %d failed: %v", i, err)
		}
	}

	if err := n.Enqueue(Task{Record: paidRecord("inv")}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestComposeOutcomeMessage_PerStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		status models.PaymentStatus
		want   []string
	}{
		{"paid", models.PaymentStatusPaid, []string{"Payment Successful", "150.00"}},
		{"failed", models.PaymentStatusFailed, []string{"Payment Failed", "/pay 150.00"}},
		{"cancelled", models.PaymentStatusCancelled, []string{"Payment Cancelled", "No charges have been made"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := paidRecord("inv-1")
			rec.Status = tc.status
			text := composeOutcomeMessage(rec)
			for _, want := range tc.want {
				if !strings.Contains(text, want) {
					t.Errorf("expected %q in message, got %q", want, text)
				}
			}
		})
	}
}
