package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"github.com/example/zinibot/internal/config"
	"github.com/example/zinibot/internal/models"
	"github.com/example/zinibot/internal/services"
	"github.com/example/zinibot/internal/store"
)

// amountPattern accepts a positive decimal with at most two fraction digits.
var amountPattern = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)

const helpText = `🤖 <b>ZiniPay Payment Bot Commands</b>

📝 <b>Available Commands:</b>

/pay &lt;amount&gt; - Create a payment link
   Example: <code>/pay 150</code>

/payments - View your pending payments

/help - Show this help message

💡 <b>How it works:</b>
1. Send /pay with an amount
2. Click the generated payment link
3. Complete payment via bKash/Nagad/Rocket
4. Receive automatic confirmation

🔒 Secure payments powered by ZiniPay`

// messenger is the slice of the bot API the command handlers send through.
type messenger interface {
	Reply(to *tele.Message, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// PaymentCreator asks the gateway for a payable link.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, req services.CreatePaymentRequest) (*services.CreatePaymentResult, error)
}

// Bot wraps the Telegram bot and its command handlers.
type Bot struct {
	api     *tele.Bot
	msgr    messenger
	cfg     *config.Config
	store   *store.Store
	gateway PaymentCreator
}

// New builds the Telegram bot. The poller is synchronous: updates are handled
// one at a time, so command handlers never run concurrently with each other.
func New(cfg *config.Config, st *store.Store, gateway PaymentCreator) (*Bot, error) {
	settings := tele.Settings{
		Token:       cfg.TelegramBotToken,
		Poller:      &tele.LongPoller{Timeout: 60 * time.Second},
		Client:      &http.Client{Timeout: cfg.SendTimeout},
		ParseMode:   tele.ModeHTML,
		Synchronous: true,
	}
	if cfg.TelegramAPIURL != "" {
		settings.URL = cfg.TelegramAPIURL
	}

	api, err := tele.NewBot(settings)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:     api,
		msgr:    api,
		cfg:     cfg,
		store:   st,
		gateway: gateway,
	}, nil
}

// API exposes the underlying telebot instance, used to wire the notifier.
func (b *Bot) API() *tele.Bot {
	return b.api
}

// Run registers handlers and starts long polling. It blocks until Stop.
func (b *Bot) Run() {
	b.api.Handle("/start", b.handleHelp)
	b.api.Handle("/help", b.handleHelp)
	b.api.Handle("/pay", b.handlePay)
	b.api.Handle("/payments", b.handlePayments)

	log.Printf("[Bot] Starting long polling as @%s", b.api.Me.Username)
	b.api.Start()
}

// Stop shuts the poller down.
func (b *Bot) Stop() {
	b.api.Stop()
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(helpText)
}

// handlePay creates a gateway payment, stores the pending record, and edits
// the progress message into the payment link.
func (b *Bot) handlePay(c tele.Context) error {
	arg := c.Message().Payload
	if !amountPattern.MatchString(arg) {
		return c.Reply("❌ Invalid amount. Please use format: <code>/pay 150</code>")
	}

	amount, err := strconv.ParseFloat(arg, 64)
	if err != nil || amount <= 0 {
		return c.Reply("❌ Amount must be greater than 0")
	}

	progress, err := b.msgr.Reply(c.Message(), "⏳ Creating payment link...")
	if err != nil {
		return err
	}

	invoiceID := uuid.NewString()
	sender := c.Sender()

	result, err := b.gateway.CreatePayment(context.Background(), services.CreatePaymentRequest{
		Amount:      amount,
		RedirectURL: fmt.Sprintf("%s?invoiceId=%s", b.cfg.SuccessURL, invoiceID),
		CancelURL:   fmt.Sprintf("%s?invoiceId=%s", b.cfg.CancelURL, invoiceID),
		WebhookURL:  fmt.Sprintf("%s?invoiceId=%s", b.cfg.WebhookURL, invoiceID),
		Metadata: map[string]string{
			"user_id":    strconv.FormatInt(sender.ID, 10),
			"username":   orNA(sender.Username),
			"first_name": orNA(sender.FirstName),
		},
	})
	if err != nil {
		log.Printf("[Bot] Payment creation failed for user %d: %v", sender.ID, err)
		_, editErr := b.msgr.Edit(progress, "❌ Failed to create payment link. Please try again later.")
		return editErr
	}

	record := models.PaymentRecord{
		ID:          invoiceID,
		ChatID:      c.Chat().ID,
		MessageID:   progress.ID,
		RequesterID: sender.ID,
		Amount:      amount,
		Status:      models.PaymentStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := b.store.Insert(record); err != nil {
		log.Printf("[Bot] Failed to store payment %s: %v", invoiceID, err)
		_, editErr := b.msgr.Edit(progress, "❌ Failed to create payment link. Please try again later.")
		return editErr
	}

	text := fmt.Sprintf(`💳 <b>Payment Link Generated</b>

💰 <b>Amount:</b> %.2f BDT
🔗 <b>Payment Link:</b> %s

📱 <b>Accepted Methods:</b>
• bKash
• Nagad
• Rocket

⏱ Click the link to complete your payment.
You will receive a confirmation once the payment is successful.`, amount, result.PaymentURL)

	if _, err := b.msgr.Edit(progress, text); err != nil {
		return err
	}

	log.Printf("[Bot] Payment link created for user %d: %s", sender.ID, invoiceID)
	return nil
}

// handlePayments lists the sender's pending payments.
func (b *Bot) handlePayments(c tele.Context) error {
	pending := b.store.Pending(c.Sender().ID)
	if len(pending) == 0 {
		return c.Reply("📭 No pending payments")
	}

	text := "📋 <b>Pending Payments:</b>\n\n"
	for _, rec := range pending {
		text += fmt.Sprintf("💰 Amount: %.2f BDT\n", rec.Amount)
		text += fmt.Sprintf("🆔 Invoice: <code>%s</code>\n", rec.ID)
		text += fmt.Sprintf("⏰ Created: %s\n\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return c.Reply(text)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
