package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/maiavyxen-hub/telapriv/pkg/config"
	"github.com/maiavyxen-hub/telapriv/pkg/metrics"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// PushinPay minimum charge is R$ 0,50; values are integers in centavos.
const pushinPayMinCentavos = 50

type PushinPay struct {
	cfg *cfgpkg.Config
	log *zap.SugaredLogger
	hc  *http.Client
}

func NewPushinPay(cfg *cfgpkg.Config, log *zap.SugaredLogger) *PushinPay {
	return &PushinPay{cfg: cfg, log: log, hc: &http.Client{Timeout: 30 * time.Second}}
}

func (p *PushinPay) Provider() types.PaymentProvider { return types.PaymentProviderPushinPay }

type pushinPayCharge struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Value        int64  `json:"value"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	ExpiresAt    string `json:"expires_at"`
	CreatedAt    string `json:"created_at"`
	PaidAt       string `json:"paid_at"`
	PaymentDate  string `json:"payment_date"`
	Message      string `json:"message"`
	Error        string `json:"error"`
}

func (p *PushinPay) CreateCharge(ctx context.Context, req *CreateChargeRequest) (*Charge, error) {
	centavos := types.CentavosFromReais(req.AmountReais)
	if centavos < pushinPayMinCentavos {
		return nil, fmt.Errorf("%w: minimum is R$ 0,50 (50 centavos)", ErrAmountTooLow)
	}

	payload := map[string]any{"value": centavos}
	if url := p.cfg.WebhookURL(p.Provider()); url != "" {
		payload["webhook_url"] = url
	}
	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.PushinPay.BaseURL+"/pix/cashIn", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.PushinPay.Token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.hc.Do(httpReq)
	metrics.ObserveGatewayCall(string(p.Provider()), "create", start)
	if err != nil {
		return nil, fmt.Errorf("pushinpay create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody map[string]any
		if err := decodeJSON(resp, &errBody); err != nil {
			return nil, err
		}
		return nil, providerError(resp.StatusCode, errBody)
	}

	var out pushinPayCharge
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	if types.NormalizeStatus(out.Status) == types.ChargeStatusRefused {
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = "transaction refused"
		}
		return nil, fmt.Errorf("%w: %s", ErrChargeRefused, msg)
	}

	charge := &Charge{
		Identifier:     out.ID,
		Status:         types.NormalizeStatus(out.Status),
		PixCode:        out.QRCode,
		QRCodeBase64:   out.QRCodeBase64,
		AmountCentavos: out.Value,
		CreatedAt:      time.Now(),
		ExpiresAt:      out.ExpiresAt,
	}
	if charge.Status == types.ChargeStatusUnknown {
		charge.Status = types.ChargeStatusCreated
	}
	if charge.AmountCentavos == 0 {
		charge.AmountCentavos = centavos
	}
	if !charge.Usable() {
		return nil, fmt.Errorf("%w: missing identifier or pix payload", ErrMalformedResponse)
	}

	p.log.Infow("pushinpay charge created", "id", charge.Identifier, "value", charge.AmountCentavos, "plan", req.PlanLabel)
	return charge, nil
}

func (p *PushinPay) QueryCharge(ctx context.Context, transactionID string) (*StatusResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.PushinPay.BaseURL+"/transactions/"+transactionID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.PushinPay.Token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.hc.Do(httpReq)
	metrics.ObserveGatewayCall(string(p.Provider()), "query", start)
	if err != nil {
		return nil, fmt.Errorf("pushinpay query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrChargeNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody map[string]any
		if err := decodeJSON(resp, &errBody); err != nil {
			return nil, err
		}
		return nil, providerError(resp.StatusCode, errBody)
	}

	var out pushinPayCharge
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	res := &StatusResult{
		Identifier:     out.ID,
		Status:         types.NormalizeStatus(out.Status),
		RawStatus:      out.Status,
		AmountCentavos: out.Value,
		PaidAt:         out.PaidAt,
	}
	if res.Identifier == "" {
		res.Identifier = transactionID
	}
	if res.PaidAt == "" {
		res.PaidAt = out.PaymentDate
	}
	return res, nil
}
