package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/zinibot/internal/bot"
	"github.com/example/zinibot/internal/models"
	"github.com/example/zinibot/internal/store"
)

// PagesHandler serves the redirect pages shown to the payer's browser and the
// health endpoint. The cancel page is also the user-facing cancel action: it
// goes through the same atomic transition path as the webhook.
type PagesHandler struct {
	store    *store.Store
	notifier NotificationScheduler
}

func NewPagesHandler(st *store.Store, notifier NotificationScheduler) *PagesHandler {
	return &PagesHandler{store: st, notifier: notifier}
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Payment Successful</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding-top: 80px;">
  <div style="font-size: 60px; color: #4CAF50;">&#10003;</div>
  <h1>Payment Successful!</h1>
  <p>Your payment has been processed successfully.</p>
  <p>You will receive a confirmation on Telegram shortly.</p>
  <p style="font-size: 14px; color: #999;">Invoice ID: %s</p>
</body>
</html>`

const cancelPage = `<!DOCTYPE html>
<html>
<head><title>Payment Cancelled</title></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding-top: 80px;">
  <div style="font-size: 60px; color: #f44336;">&#10005;</div>
  <h1>Payment Cancelled</h1>
  <p>Your payment was cancelled.</p>
  <p>No charges have been made.</p>
</body>
</html>`

// Success renders the confirmation page. The webhook is the authoritative
// signal; the redirect changes no state.
func (h *PagesHandler) Success(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(fmt.Sprintf(successPage, c.Query("invoiceId")))
}

// Cancel transitions the invoice to Cancelled and renders the cancel page.
// An unknown or already resolved invoice still gets the page.
func (h *PagesHandler) Cancel(c *fiber.Ctx) error {
	invoiceID := c.Query("invoiceId")
	if invoiceID != "" {
		prev, performed, err := h.store.Transition(invoiceID, models.PaymentStatusCancelled, nil)
		if err != nil && err != store.ErrNotFound && err != store.ErrAlreadyTerminal {
			log.Printf("[Cancel] Transition failed for invoice %s: %v", invoiceID, err)
		}
		if performed {
			record := prev
			record.Status = models.PaymentStatusCancelled
			if err := h.notifier.Enqueue(bot.Task{Record: record}); err != nil {
				log.Printf("[Cancel] Failed to schedule notification for invoice %s: %v", invoiceID, err)
			}
			log.Printf("[Cancel] Invoice %s cancelled", invoiceID)
		}
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(cancelPage)
}

// Health reports the number of payments still pending.
func (h *PagesHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":           "ok",
		"pending_payments": h.store.PendingCount(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}
