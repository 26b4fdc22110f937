// Package payment содержит клиенты платёжных провайдеров.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ignatzorin/easytransact-backend/internal/config"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

const (
	paypalTimeout       = 30 * time.Second
	captureStatusOK     = "COMPLETED"
	maxPayPalErrorBytes = 2048
)

// PayPalClient работает с PayPal REST API: заказы, списание и выплаты.
type PayPalClient struct {
	baseURL  string
	currency string
	http     *http.Client
}

// NewPayPalClient создаёт клиента, который получает и обновляет токен по client credentials.
func NewPayPalClient(cfg config.PayPalConfig) *PayPalClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: paypalTimeout})
	httpClient := cc.Client(ctx)
	httpClient.Timeout = paypalTimeout

	return &PayPalClient{baseURL: base, currency: cfg.Currency, http: httpClient}
}

// PayPalAmount - сумма в формате PayPal. Заказы используют currency_code, выплаты - currency.
type PayPalAmount struct {
	CurrencyCode string `json:"currency_code,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Value        string `json:"value"`
}

// PayPalPurchaseUnit - покупка внутри заказа. ReferenceID хранит идентификатор предложения.
type PayPalPurchaseUnit struct {
	ReferenceID string          `json:"reference_id"`
	Amount      *PayPalAmount   `json:"amount,omitempty"`
	Payments    *PayPalPayments `json:"payments,omitempty"`
}

type PayPalPayments struct {
	Captures []PayPalCaptureItem `json:"captures"`
}

type PayPalCaptureItem struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Amount PayPalAmount `json:"amount"`
}

type PayPalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// PayPalOrder - созданный заказ. ApproveURL ведёт покупателя на страницу оплаты.
type PayPalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []PayPalPurchaseUnit `json:"purchase_units,omitempty"`
	Links         []PayPalLink         `json:"links"`
	ApproveURL    string               `json:"approve_url,omitempty"`
}

// Matches проверяет, что заказ состоит из одной покупки для referenceID
// на сумму amount в валюте currency.
func (o *PayPalOrder) Matches(referenceID string, amount float64, currency string) bool {
	if len(o.PurchaseUnits) != 1 {
		return false
	}
	unit := o.PurchaseUnits[0]
	if unit.ReferenceID != referenceID || unit.Amount == nil || unit.Amount.CurrencyCode != currency {
		return false
	}
	got, ok := toCents(unit.Amount.Value)
	return ok && got == amountCents(amount)
}

// PayPalCapture - результат списания. Raw хранится в offers.payment_details.
type PayPalCapture struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []PayPalPurchaseUnit `json:"purchase_units"`
	Raw           json.RawMessage      `json:"-"`
}

// Matches проверяет, что списание относится к покупке referenceID и что
// завершённые списания в валюте currency в сумме дают ровно amount.
func (c *PayPalCapture) Matches(referenceID string, amount float64, currency string) bool {
	if len(c.PurchaseUnits) != 1 {
		return false
	}
	unit := c.PurchaseUnits[0]
	if unit.ReferenceID != referenceID || unit.Payments == nil {
		return false
	}

	var total int64
	for _, item := range unit.Payments.Captures {
		if item.Status != captureStatusOK {
			continue
		}
		if item.Amount.CurrencyCode != currency {
			return false
		}
		cents, ok := toCents(item.Amount.Value)
		if !ok {
			return false
		}
		total += cents
	}
	return total > 0 && total == amountCents(amount)
}

// CreateOrder создаёт заказ на сумму предложения. referenceID связывает заказ с предложением.
func (c *PayPalClient) CreateOrder(ctx context.Context, referenceID string, amount float64) (*PayPalOrder, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": referenceID,
			"amount":       PayPalAmount{CurrencyCode: c.currency, Value: formatAmount(amount)},
		}},
	}

	var order PayPalOrder
	if _, err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &order); err != nil {
		return nil, fmt.Errorf("paypal: create order: %w", err)
	}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApproveURL = l.Href
		}
	}
	return &order, nil
}

// GetOrder возвращает заказ вместе с покупками, чтобы сверить его с предложением до списания.
func (c *PayPalClient) GetOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	var order PayPalOrder
	if _, err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, nil, &order); err != nil {
		return nil, fmt.Errorf("paypal: get order %s: %w", orderID, err)
	}
	return &order, nil
}

// Currency возвращает валюту заказов и выплат.
func (c *PayPalClient) Currency() string {
	return c.currency
}

// CaptureOrder списывает одобренный покупателем заказ.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error) {
	var capture PayPalCapture
	raw, err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", nil, &capture)
	if err != nil {
		return nil, fmt.Errorf("paypal: capture order %s: %w", orderID, err)
	}
	if capture.Status != captureStatusOK {
		return nil, apperror.New(apperror.ErrCodeUpstream, "PayPal вернул статус списания "+capture.Status)
	}
	capture.Raw = raw
	return &capture, nil
}

// Payout переводит сумму продавцу на email. Возвращает идентификатор пакета выплат.
func (c *PayPalClient) Payout(ctx context.Context, receiverEmail string, amount float64, note string) (string, error) {
	body := map[string]any{
		"sender_batch_header": map[string]string{
			"sender_batch_id": uuid.NewString(),
			"email_subject":   "You have a payout!",
		},
		"items": []map[string]any{{
			"recipient_type": "EMAIL",
			"receiver":       receiverEmail,
			"note":           note,
			"amount":         PayPalAmount{Currency: c.currency, Value: formatAmount(amount)},
		}},
	}

	var resp struct {
		BatchHeader struct {
			PayoutBatchID string `json:"payout_batch_id"`
			BatchStatus   string `json:"batch_status"`
		} `json:"batch_header"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/v1/payments/payouts", body, &resp); err != nil {
		return "", fmt.Errorf("paypal: payout: %w", err)
	}
	return resp.BatchHeader.PayoutBatchID, nil
}

// do выполняет запрос к API и декодирует ответ в out. Возвращает тело ответа.
func (c *PayPalClient) do(ctx context.Context, method, path string, in, out any) (json.RawMessage, error) {
	var reader io.Reader = http.NoBody
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, "PayPal недоступен")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, "PayPal недоступен")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxPayPalErrorBytes {
			raw = raw[:maxPayPalErrorBytes]
		}
		cause := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return nil, apperror.Wrap(cause, apperror.ErrCodeUpstream, "PayPal отклонил запрос")
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return raw, nil
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func amountCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// toCents разбирает десятичную сумму PayPal вида "150.00".
func toCents(value string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return amountCents(f), true
}
