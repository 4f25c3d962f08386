// Package client is the checkout agent's HTTP client for the payments
// backend. It speaks the action-dispatch shape of the provider proxy routes
// and the save-payment / check-access endpoints.
package client

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

	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// ErrChargeNotFound means the backend answered 404 for a status query. The
// poller treats it as indexing lag, not a failure.
var ErrChargeNotFound = errors.New("charge not found")

// Charge is the backend's normalized charge shape.
type Charge struct {
	Success    bool   `json:"success"`
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
	PixCode    string `json:"pix_code"`
	QRCode     string `json:"qr_code"`
	Amount     int64  `json:"amount"`
	PaidAt     string `json:"paid_at"`
	ExpiresAt  string `json:"expires_at"`
}

// Client talks to the payments backend.
type Client struct {
	baseURL  string
	provider types.PaymentProvider
	hc       *http.Client
	log      *zap.SugaredLogger
}

func New(baseURL string, provider types.PaymentProvider, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		provider: provider,
		hc:       &http.Client{Timeout: 15 * time.Second},
		log:      log,
	}
}

func (c *Client) Provider() types.PaymentProvider { return c.provider }

// CreatePix asks the backend to create a PIX charge for the given amount in
// reais.
func (c *Client) CreatePix(ctx context.Context, valor float64, plano string) (*Charge, error) {
	body := map[string]any{"action": "create-pix", "valor": valor, "plano": plano}
	var out Charge
	if err := c.post(ctx, "/api/"+string(c.provider), body, &out); err != nil {
		return nil, err
	}
	if out.Identifier == "" {
		return nil, errors.New("backend returned charge without identifier")
	}
	return &out, nil
}

// CheckPayment queries the current status of a charge. A 404 from the
// backend maps to ErrChargeNotFound so callers can tell indexing lag apart
// from real failures.
func (c *Client) CheckPayment(ctx context.Context, transactionID string) (*Charge, error) {
	body := map[string]any{"action": "check-payment", "transactionId": transactionID}
	var out Charge
	if err := c.post(ctx, "/api/"+string(c.provider), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavePayment persists a confirmation record server-side. Best-effort from
// the caller's point of view.
func (c *Client) SavePayment(ctx context.Context, rec *payments.Record) error {
	var out struct {
		Success bool `json:"success"`
	}
	return c.post(ctx, "/api/save-payment", rec, &out)
}

// CheckAccess asks the backend whether a transaction grants access.
func (c *Client) CheckAccess(ctx context.Context, transactionID string) (bool, *payments.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/check-access?transactionId="+transactionID, nil)
	if err != nil {
		return false, nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return false, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, nil, fmt.Errorf("check-access: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		HasAccess bool             `json:"hasAccess"`
		Payment   *payments.Record `json:"payment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, nil, err
	}
	return out.HasAccess, out.Payment, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return ErrChargeNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = string(raw)
		}
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
