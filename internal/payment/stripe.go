package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// Stripe PaymentIntent APIのクライアント。
// confirm=true で作成するので、成功レスポンス＝キャプチャ済み。
type StripeClient struct {
	secretKey  string
	baseURL    string
	returnURL  string
	httpClient *http.Client
}

func NewStripeClient(secretKey string, returnURL string) *StripeClient {
	return &StripeClient{
		secretKey: secretKey,
		baseURL:   defaultStripeBaseURL,
		returnURL: returnURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type stripePaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type stripeErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *StripeClient) Charge(ctx context.Context, in ChargeInput) (Charge, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(in.AmountMinor, 10))
	form.Set("currency", in.Currency)
	form.Set("payment_method", in.PaymentMethodID)
	form.Set("confirm", "true")
	if c.returnURL != "" {
		form.Set("return_url", c.returnURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return Charge{}, err
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	//同じリクエストの再送で二重課金しないように
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Charge{}, &GatewayError{Message: fmt.Sprintf("payment request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Charge{}, &GatewayError{Message: fmt.Sprintf("payment response read failed: %v", err)}
	}

	if resp.StatusCode >= 400 {
		var eb stripeErrorBody
		if jsonErr := json.Unmarshal(body, &eb); jsonErr == nil && eb.Error.Message != "" {
			return Charge{}, &GatewayError{
				Code:    eb.Error.Code,
				Type:    eb.Error.Type,
				Message: eb.Error.Message,
			}
		}
		return Charge{}, &GatewayError{Message: fmt.Sprintf("payment failed with status %d", resp.StatusCode)}
	}

	var pi stripePaymentIntent
	if err := json.Unmarshal(body, &pi); err != nil {
		return Charge{}, &GatewayError{Message: "payment response parse failed"}
	}
	if pi.Status != "succeeded" {
		//requires_action等、同期確定できなかったもの
		return Charge{}, &GatewayError{Message: fmt.Sprintf("payment not completed: status %s", pi.Status)}
	}

	return Charge{ID: pi.ID, Status: pi.Status}, nil
}
