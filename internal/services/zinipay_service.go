package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGatewayUnavailable is returned when ZiniPay cannot be reached or rejects
// the call. It is surfaced to the requesting user and not retried.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

const defaultZiniTimeout = 15 * time.Second

// ZiniPayService talks to the ZiniPay REST API.
type ZiniPayService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewZiniPayService creates a ZiniPay client for the given API key and base URL.
func NewZiniPayService(apiKey, baseURL string) *ZiniPayService {
	return &ZiniPayService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultZiniTimeout},
	}
}

// CreatePaymentRequest captures inputs for the payment creation call.
type CreatePaymentRequest struct {
	Amount      float64
	RedirectURL string
	CancelURL   string
	WebhookURL  string
	Metadata    map[string]string
}

// CreatePaymentResult holds the gateway's response to a creation call.
type CreatePaymentResult struct {
	PaymentURL string
}

type ziniCreateRequest struct {
	Amount      string            `json:"amount"`
	RedirectURL string            `json:"redirect_url"`
	CancelURL   string            `json:"cancel_url"`
	WebhookURL  string            `json:"webhook_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type ziniCreateResponse struct {
	Status     bool   `json:"status"`
	PaymentURL string `json:"payment_url"`
	Message    string `json:"message"`
}

// VerifyResult holds the gateway's view of a payment after verification.
type VerifyResult struct {
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transactionId"`
	PaymentMethod string `json:"paymentMethod"`
}

type ziniVerifyRequest struct {
	InvoiceID string `json:"invoiceId"`
	APIKey    string `json:"apiKey"`
}

// CreatePayment asks ZiniPay for a payable URL.
func (s *ZiniPayService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	payload := ziniCreateRequest{
		Amount:      fmt.Sprintf("%.2f", req.Amount),
		RedirectURL: req.RedirectURL,
		CancelURL:   req.CancelURL,
		WebhookURL:  req.WebhookURL,
		Metadata:    req.Metadata,
	}

	var resp ziniCreateResponse
	if err := s.post(ctx, "/v1/payment/create", payload, &resp); err != nil {
		return nil, err
	}

	if !resp.Status || resp.PaymentURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, resp.Message)
	}

	return &CreatePaymentResult{PaymentURL: resp.PaymentURL}, nil
}

// VerifyPayment re-checks a specific payment's status with the gateway.
func (s *ZiniPayService) VerifyPayment(ctx context.Context, invoiceID string) (*VerifyResult, error) {
	payload := ziniVerifyRequest{
		InvoiceID: invoiceID,
		APIKey:    s.apiKey,
	}

	var resp VerifyResult
	if err := s.post(ctx, "/v1/payment/verify", payload, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (s *ZiniPayService) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ZiniPay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create ZiniPay request: %w", err)
	}
	req.Header.Set("zini-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ZiniPay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrGatewayUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode ZiniPay response: %w", err)
	}

	return nil
}
