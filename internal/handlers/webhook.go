package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/zinibot/internal/bot"
	"github.com/example/zinibot/internal/models"
	"github.com/example/zinibot/internal/services"
	"github.com/example/zinibot/internal/store"
)

// Gateway status tokens. Anything else is an intermediate status and is
// acknowledged without a transition.
const (
	statusTokenCompleted = "COMPLETED"
	statusTokenFailed    = "FAILED"
)

const verifyTimeout = 10 * time.Second

// NotificationScheduler hands a notification task over to the bot's event
// loop without blocking.
type NotificationScheduler interface {
	Enqueue(bot.Task) error
}

// PaymentVerifier re-checks a payment's status with the gateway.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, invoiceID string) (*services.VerifyResult, error)
}

// WebhookHandler ingests ZiniPay callbacks and turns them into state
// transitions. It runs on fiber's request goroutines, arbitrarily many at a
// time, including duplicate deliveries for the same invoice.
type WebhookHandler struct {
	store    *store.Store
	gateway  PaymentVerifier
	notifier NotificationScheduler
}

func NewWebhookHandler(st *store.Store, gateway PaymentVerifier, notifier NotificationScheduler) *WebhookHandler {
	return &WebhookHandler{
		store:    st,
		gateway:  gateway,
		notifier: notifier,
	}
}

type webhookPayload struct {
	InvoiceID     string `json:"invoiceId"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	PaymentMethod string `json:"paymentMethod"`
	Amount        string `json:"amount"`
}

// Handle processes one authenticated gateway callback. Business outcomes,
// including duplicates and ignored statuses, are answered 200 so the gateway
// does not retry; only malformed requests get a 4xx here.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	var payload webhookPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		log.Printf("[Webhook] Malformed payload: %v", err)
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	invoiceID := payload.InvoiceID
	if invoiceID == "" {
		invoiceID = c.Query("invoiceId")
	}
	if invoiceID == "" || payload.Status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invoiceId and status are required")
	}

	// The invoice must exist before the status is interpreted, so a callback
	// for an id this process never created is a 404 even when its status is
	// an intermediate one.
	if _, err := h.store.Get(invoiceID); err != nil {
		log.Printf("[Webhook] Callback for unknown invoice %s", invoiceID)
		return fiber.NewError(fiber.StatusNotFound, "unknown invoice")
	}

	var next models.PaymentStatus
	switch strings.ToUpper(payload.Status) {
	case statusTokenCompleted:
		next = models.PaymentStatusPaid
	case statusTokenFailed:
		next = models.PaymentStatusFailed
	default:
		// Intermediate gateway statuses must not be mistaken for terminal ones.
		log.Printf("[Webhook] Ignoring status %q for invoice %s", payload.Status, invoiceID)
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	meta := h.collectMetadata(invoiceID, payload, next)

	prev, performed, err := h.store.Transition(invoiceID, next, meta)
	if err != nil {
		if err == store.ErrNotFound {
			log.Printf("[Webhook] Callback for unknown invoice %s", invoiceID)
			return fiber.NewError(fiber.StatusNotFound, "unknown invoice")
		}
		// Already terminal: the gateway delivered this event at least twice.
		log.Printf("[Webhook] Duplicate terminal event for invoice %s (status %s)", invoiceID, prev.Status)
		return c.JSON(fiber.Map{"status": "duplicate"})
	}
	if !performed {
		// Transition contract: err == nil implies performed, but never notify
		// unless this call actually performed it.
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	record := prev
	record.Status = next
	record.GatewayMeta = meta

	if err := h.notifier.Enqueue(bot.Task{Record: record}); err != nil {
		// The transition already happened; a gateway retry would be answered
		// as a duplicate, so the lost notification is a delivery failure.
		log.Printf("[Webhook] Failed to schedule notification for invoice %s: %v", invoiceID, err)
	}

	log.Printf("[Webhook] Invoice %s transitioned to %s", invoiceID, next)
	return c.JSON(fiber.Map{"status": "ok"})
}

// collectMetadata builds the gateway metadata for the transition. Completed
// payments are re-verified with the gateway and its transaction details win;
// if verification is unavailable the callback payload's fields are kept.
func (h *WebhookHandler) collectMetadata(invoiceID string, payload webhookPayload, next models.PaymentStatus) map[string]string {
	meta := map[string]string{}
	if payload.TransactionID != "" {
		meta["transactionId"] = payload.TransactionID
	}
	if payload.PaymentMethod != "" {
		meta["paymentMethod"] = payload.PaymentMethod
	}
	if payload.Amount != "" {
		meta["amount"] = payload.Amount
	}

	if next != models.PaymentStatusPaid || h.gateway == nil {
		return meta
	}

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	verification, err := h.gateway.VerifyPayment(ctx, invoiceID)
	if err != nil {
		log.Printf("[Webhook] Verification failed for invoice %s, using callback fields: %v", invoiceID, err)
		return meta
	}

	if verification.TransactionID != "" {
		meta["transactionId"] = verification.TransactionID
	}
	if verification.PaymentMethod != "" {
		meta["paymentMethod"] = verification.PaymentMethod
	}
	if verification.Amount != "" {
		meta["amount"] = verification.Amount
	}
	return meta
}
