package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/maiavyxen-hub/telapriv/pkg/config"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram pushes payment confirmations to the configured chat. It is a
// best-effort collaborator: a missing configuration disables it and send
// failures are logged only.
type Telegram struct {
	cfg     *cfgpkg.Config
	log     *zap.SugaredLogger
	hc      *http.Client
	baseURL string
}

func NewTelegram(cfg *cfgpkg.Config, log *zap.SugaredLogger) *Telegram {
	return &Telegram{cfg: cfg, log: log, hc: &http.Client{Timeout: 10 * time.Second}, baseURL: telegramAPIBase}
}

func (t *Telegram) Enabled() bool {
	return t.cfg.Telegram.BotToken != "" && t.cfg.Telegram.ChatID != ""
}

// PaymentConfirmed sends the confirmation message for one transaction.
func (t *Telegram) PaymentConfirmed(ctx context.Context, transactionID, status string, valueReais float64) error {
	if !t.Enabled() {
		return nil
	}

	msg := fmt.Sprintf("🎉 *Pagamento Confirmado!*\n\n"+
		"💰 Valor: R$ %.2f\n"+
		"🆔 ID: %s\n"+
		"✅ Status: %s\n"+
		"⏰ %s",
		valueReais, transactionID, status, time.Now().Format("02/01/2006 15:04:05"))

	body, _ := json.Marshal(map[string]string{
		"chat_id":    t.cfg.Telegram.ChatID,
		"text":       msg,
		"parse_mode": "Markdown",
	})
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.cfg.Telegram.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.hc.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram send: status %d", resp.StatusCode)
	}
	t.log.Infow("telegram notification sent", "transaction_id", transactionID)
	return nil
}
