package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/maiavyxen-hub/telapriv/pkg/config"
	"github.com/maiavyxen-hub/telapriv/pkg/metrics"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// SyncPay accepts amounts in reais and has a R$ 0,01 floor.
const syncPayMinReais = 0.01

// Auth tokens are cached and renewed 5 minutes before they actually expire.
const syncPayTokenSafety = 5 * time.Minute

type SyncPay struct {
	cfg *cfgpkg.Config
	log *zap.SugaredLogger
	hc  *http.Client

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

func NewSyncPay(cfg *cfgpkg.Config, log *zap.SugaredLogger) *SyncPay {
	return &SyncPay{cfg: cfg, log: log, hc: &http.Client{Timeout: 30 * time.Second}}
}

func (s *SyncPay) Provider() types.PaymentProvider { return types.PaymentProviderSyncPay }

func (s *SyncPay) partnerURL(path string) string {
	return s.cfg.SyncPay.BaseURL + "/api/partner/v1" + path
}

// authToken returns a cached partner token, fetching a fresh one when the
// cache is empty or stale.
func (s *SyncPay) authToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Now().Before(s.tokenExpiresAt) {
		return s.token, nil
	}

	if s.cfg.SyncPay.ClientID == "" || s.cfg.SyncPay.ClientSecret == "" {
		return "", fmt.Errorf("syncpay client_id and client_secret must be configured")
	}

	body, _ := json.Marshal(map[string]string{
		"client_id":     s.cfg.SyncPay.ClientID,
		"client_secret": s.cfg.SyncPay.ClientSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.partnerURL("/auth-token"), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("syncpay auth: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Message     string `json:"message"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || out.AccessToken == "" {
		if out.Message != "" {
			return "", fmt.Errorf("syncpay auth failed (%d): %s", resp.StatusCode, out.Message)
		}
		return "", fmt.Errorf("syncpay auth failed (%d)", resp.StatusCode)
	}

	expiresIn := out.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	s.token = out.AccessToken
	s.tokenExpiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - syncPayTokenSafety)
	s.log.Infow("syncpay token refreshed", "expires_at", s.tokenExpiresAt)
	return s.token, nil
}

func (s *SyncPay) CreateCharge(ctx context.Context, req *CreateChargeRequest) (*Charge, error) {
	if req.AmountReais < syncPayMinReais {
		return nil, fmt.Errorf("%w: minimum is R$ 0,01", ErrAmountTooLow)
	}

	token, err := s.authToken(ctx)
	if err != nil {
		return nil, err
	}

	description := req.PlanLabel
	if description == "" {
		description = fmt.Sprintf("Pagamento - %.2f", req.AmountReais)
	}
	payload := map[string]any{
		"amount":      req.AmountReais,
		"description": description,
	}
	if url := s.cfg.WebhookURL(s.Provider()); url != "" {
		payload["webhook_url"] = url
	}
	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.partnerURL("/cash-in"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.hc.Do(httpReq)
	metrics.ObserveGatewayCall(string(s.Provider()), "create", start)
	if err != nil {
		return nil, fmt.Errorf("syncpay create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody map[string]any
		if err := decodeJSON(resp, &errBody); err != nil {
			return nil, err
		}
		return nil, providerError(resp.StatusCode, errBody)
	}

	var out struct {
		Identifier string `json:"identifier"`
		PixCode    string `json:"pix_code"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	// SyncPay never returns a base64 raster; callers render from the text.
	charge := &Charge{
		Identifier:     out.Identifier,
		Status:         types.ChargeStatusCreated,
		PixCode:        out.PixCode,
		AmountCentavos: types.CentavosFromReais(req.AmountReais),
		CreatedAt:      time.Now(),
	}
	if !charge.Usable() {
		return nil, fmt.Errorf("%w: missing identifier or pix payload", ErrMalformedResponse)
	}

	s.log.Infow("syncpay charge created", "id", charge.Identifier, "value", charge.AmountCentavos, "plan", req.PlanLabel)
	return charge, nil
}

func (s *SyncPay) QueryCharge(ctx context.Context, transactionID string) (*StatusResult, error) {
	token, err := s.authToken(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.partnerURL("/transaction/"+transactionID), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.hc.Do(httpReq)
	metrics.ObserveGatewayCall(string(s.Provider()), "query", start)
	if err != nil {
		return nil, fmt.Errorf("syncpay query: %w", err)
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

	var out struct {
		Data *syncPayTransaction `json:"data"`
		syncPayTransaction
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	tx := out.syncPayTransaction
	if out.Data != nil {
		tx = *out.Data
	}

	res := &StatusResult{
		Identifier:     tx.ReferenceID,
		Status:         types.NormalizeStatus(tx.Status),
		RawStatus:      tx.Status,
		AmountCentavos: types.CentavosFromReais(tx.Amount),
		PaidAt:         tx.TransactionDate,
	}
	if res.Identifier == "" {
		res.Identifier = transactionID
	}
	return res, nil
}

type syncPayTransaction struct {
	ReferenceID     string  `json:"reference_id"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	TransactionDate string  `json:"transaction_date"`
}
