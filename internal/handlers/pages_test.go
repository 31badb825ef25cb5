package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/example/zinibot/internal/models"
	"github.com/example/zinibot/internal/store"
)

func newPagesApp(st *store.Store, scheduler NotificationScheduler) *fiber.App {
	app := fiber.New()
	handler := NewPagesHandler(st, scheduler)
	app.Get("/success", handler.Success)
	app.Get("/cancel", handler.Cancel)
	app.Get("/health", handler.Health)
	return app
}

func TestCancel_TransitionsPendingPayment(t *testing.T) {
	t.Parallel()

	st := store.New()
	if err := st.Insert(models.PaymentRecord{ID: "inv-1", ChatID: 42, Amount: 150, Status: models.PaymentStatusPending}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	scheduler := &mockScheduler{}
	app := newPagesApp(st, scheduler)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/cancel?invoiceId=inv-1", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	rec, err := st.Get("inv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != models.PaymentStatusCancelled {
		t.Errorf("expected status CANCELLED, got %s", rec.Status)
	}

	tasks := scheduler.Tasks()
	if len(tasks) != 1 || tasks[0].Record.Status != models.PaymentStatusCancelled {
		t.Errorf("expected one CANCELLED notification, got %v", tasks)
	}
}

func TestCancel_AlreadyPaid_PageOnlyNoNotification(t *testing.T) {
	t.Parallel()

	st := store.New()
	if err := st.Insert(models.PaymentRecord{ID: "inv-1", Amount: 150, Status: models.PaymentStatusPending}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, performed, err := st.Transition("inv-1", models.PaymentStatusPaid, nil); err != nil || !performed {
		t.Fatalf("setup transition failed: performed=%v err=%v", performed, err)
	}

	scheduler := &mockScheduler{}
	app := newPagesApp(st, scheduler)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/cancel?invoiceId=inv-1", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(scheduler.Tasks()) != 0 {
		t.Errorf("expected no notification for an already resolved payment")
	}

	rec, _ := st.Get("inv-1")
	if rec.Status != models.PaymentStatusPaid {
		t.Errorf("terminal status was overwritten: %s", rec.Status)
	}
}

func TestSuccess_RendersInvoiceID(t *testing.T) {
	t.Parallel()

	app := newPagesApp(store.New(), &mockScheduler{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/success?invoiceId=inv-1", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "inv-1") {
		t.Error("expected success page to reference the invoice id")
	}
	if !strings.Contains(resp.Header.Get(fiber.HeaderContentType), "text/html") {
		t.Errorf("expected HTML content type, got %s", resp.Header.Get(fiber.HeaderContentType))
	}
}

func TestHealth_ReportsPendingCount(t *testing.T) {
	t.Parallel()

	st := store.New()
	for _, id := range []string{"inv-1", "inv-2"} {
		if err := st.Insert(models.PaymentRecord{ID: id, Amount: 10, Status: models.PaymentStatusPending}); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	if _, performed, err := st.Transition("inv-2", models.PaymentStatusFailed, nil); err != nil || !performed {
		t.Fatalf("setup transition failed: performed=%v err=%v", performed, err)
	}

	app := newPagesApp(st, &mockScheduler{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status          string `json:"status"`
		PendingPayments int    `json:"pending_payments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if body.Status != "ok" {
		t.Errorf("expected status ok, got %s", body.Status)
	}
	if body.PendingPayments != 1 {
		t.Errorf("expected 1 pending payment, got %d", body.PendingPayments)
	}
}
