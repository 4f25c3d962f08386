package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// Charge is the provider-independent result of creating a PIX charge.
// At least one of PixCode / QRCodeBase64 is present on a usable charge.
type Charge struct {
	Identifier     string             `json:"identifier"`
	Status         types.ChargeStatus `json:"status"`
	PixCode        string             `json:"pix_code,omitempty"`
	QRCodeBase64   string             `json:"qr_code,omitempty"`
	AmountCentavos int64              `json:"amount"`
	CreatedAt      time.Time          `json:"created_at"`
	ExpiresAt      string             `json:"expires_at,omitempty"`
}

// Usable reports whether the charge can actually be paid: it needs an
// identifier and at least one payload form.
func (c *Charge) Usable() bool {
	return c != nil && c.Identifier != "" && (c.PixCode != "" || c.QRCodeBase64 != "")
}

type CreateChargeRequest struct {
	AmountReais float64
	PlanLabel   string
}

// StatusResult is one status observation for an existing charge.
type StatusResult struct {
	Identifier     string             `json:"identifier"`
	Status         types.ChargeStatus `json:"status"`
	RawStatus      string             `json:"raw_status,omitempty"`
	AmountCentavos int64              `json:"amount,omitempty"`
	PaidAt         string             `json:"paid_at,omitempty"`
}

var (
	// ErrAmountTooLow rejects a create below the provider minimum before any
	// network call.
	ErrAmountTooLow = errors.New("amount below provider minimum")
	// ErrChargeRefused is a synchronous refusal at creation, terminal.
	ErrChargeRefused = errors.New("charge refused by provider")
	// ErrMalformedResponse marks a success response missing the data that
	// makes a charge usable. Reported, never retried.
	ErrMalformedResponse = errors.New("payment provider returned invalid data")
	// ErrChargeNotFound maps the provider 404. During polling this means
	// "not yet indexed", not a failure.
	ErrChargeNotFound = errors.New("charge not found")
)

// Gateway normalizes one upstream provider API. The poller and handlers only
// ever see the normalized shapes above.
type Gateway interface {
	Provider() types.PaymentProvider
	CreateCharge(ctx context.Context, req *CreateChargeRequest) (*Charge, error)
	QueryCharge(ctx context.Context, transactionID string) (*StatusResult, error)
}

// Registry resolves gateways by provider name for route dispatch.
type Registry struct {
	byProvider map[types.PaymentProvider]Gateway
}

func NewRegistry(push *PushinPay, sync *SyncPay) *Registry {
	return &Registry{byProvider: map[types.PaymentProvider]Gateway{
		push.Provider(): push,
		sync.Provider(): sync,
	}}
}

func (r *Registry) Get(name string) (Gateway, bool) {
	gw, ok := r.byProvider[types.PaymentProvider(strings.ToLower(name))]
	return gw, ok
}

// All returns every registered gateway; route registration iterates this.
func (r *Registry) All() []Gateway {
	out := make([]Gateway, 0, len(r.byProvider))
	for _, p := range []types.PaymentProvider{types.PaymentProviderPushinPay, types.PaymentProviderSyncPay} {
		if gw, ok := r.byProvider[p]; ok {
			out = append(out, gw)
		}
	}
	return out
}

// decodeJSON decodes a provider response body, checking the content type
// first: both providers occasionally answer with HTML error pages, which must
// surface as malformed-response errors rather than decode garbage.
func decodeJSON(resp *http.Response, out any) error {
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: content-type %q, body %q", ErrMalformedResponse, ct, string(preview))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// providerError extracts the upstream error text so the user sees the
// provider's own message instead of a generic failure.
func providerError(status int, body map[string]any) error {
	for _, k := range []string{"message", "error"} {
		if s, ok := body[k].(string); ok && s != "" {
			return fmt.Errorf("provider error (%d): %s", status, s)
		}
	}
	return fmt.Errorf("provider error (%d)", status)
}
