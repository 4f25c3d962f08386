package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/notify"
	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/internal/app/service/webhooklog"
	"github.com/maiavyxen-hub/telapriv/internal/models"
	cfgpkg "github.com/maiavyxen-hub/telapriv/pkg/config"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// Handler processes inbound provider webhooks: validates the shared token,
// parses the payload, and on a paid-equivalent status persists the
// confirmation record and fires the Telegram notification. Both side effects
// are best-effort; only an unusable payload makes HandleNotification fail.
type Handler struct {
	cfg    *cfgpkg.Config
	store  *payments.Store
	tg     *notify.Telegram
	logSvc *webhooklog.Service
	Logger *zap.SugaredLogger
}

func NewHandler(cfg *cfgpkg.Config, store *payments.Store, tg *notify.Telegram, logSvc *webhooklog.Service, log *zap.SugaredLogger) *Handler {
	return &Handler{cfg: cfg, store: store, tg: tg, logSvc: logSvc, Logger: log}
}

// Authorized checks the provider's shared webhook token. An unconfigured
// token accepts everything (logged as a warning), matching how the site is
// deployed before tokens are issued.
func (h *Handler) Authorized(c *gin.Context, provider types.PaymentProvider) bool {
	var got, expected string
	switch provider {
	case types.PaymentProviderPushinPay:
		expected = h.cfg.PushinPay.WebhookToken
		got = c.GetHeader("X-Pushinpay-Token")
	case types.PaymentProviderSyncPay:
		expected = h.cfg.SyncPay.WebhookToken
		got = c.GetHeader("X-Syncpay-Token")
		if got == "" {
			got = c.GetHeader("Authorization")
		}
	}
	if expected == "" {
		h.Logger.Warnw("webhook token not configured, accepting without validation", "provider", provider)
		return true
	}
	return got == expected || strings.Contains(got, expected)
}

// HandleNotification processes one webhook delivery. It returns an error only
// when the payload has no transaction id; internal processing failures are
// absorbed so the provider never retries because of them.
func (h *Handler) HandleNotification(c *gin.Context, provider types.PaymentProvider) (resErr error) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		return ErrMissingTransactionID
	}

	parser, err := ParserFor(provider)
	if err != nil {
		return err
	}
	notif, err := parser.Parse(payload)
	if err != nil {
		h.Logger.Warnw("webhook payload rejected", "provider", provider, "error", err)
		return err
	}

	var traceID string
	if v, ok := c.Get("traceID"); ok {
		if s, ok2 := v.(string); ok2 {
			traceID = s
		}
	}
	dataBytes, _ := json.Marshal(payload)

	h.logSvc.Save(c.Request.Context(), &models.WebhookLog{
		ProviderID:    string(provider),
		TraceID:       traceID,
		TransactionID: notif.TransactionID,
		ReceivedAt:    time.Now(),
		Data:          datatypes.JSON(dataBytes),
		Status:        models.WebhookLogStatusReceived,
	})

	defer func() {
		resMap := map[string]any{
			"transaction_id": notif.TransactionID,
			"status":         notif.Status,
		}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		status := models.WebhookLogStatusHandled
		if resErr != nil {
			status = models.WebhookLogStatusHandleFailed
		}
		h.logSvc.Save(c.Request.Context(), &models.WebhookLog{
			ProviderID:    string(provider),
			TraceID:       traceID,
			TransactionID: notif.TransactionID,
			ReceivedAt:    time.Now(),
			Data:          datatypes.JSON(dataBytes),
			Result:        func() *datatypes.JSON { j := datatypes.JSON(resBytes); return &j }(),
			Status:        status,
		})
	}()

	switch notif.Status {
	case types.ChargeStatusPaid:
		h.Logger.Infow("payment confirmed via webhook",
			"provider", provider, "transaction_id", notif.TransactionID, "value", notif.ValueReais)

		if err := h.tg.PaymentConfirmed(c.Request.Context(), notif.TransactionID, notif.RawStatus, notif.ValueReais); err != nil {
			h.Logger.Warnw("telegram notification failed", "transaction_id", notif.TransactionID, "error", err)
		}

		rec := &payments.Record{
			TransactionID: notif.TransactionID,
			Status:        notif.RawStatus,
			Value:         notif.ValueReais,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			Plano:         notif.PlanLabel,
		}
		if err := h.store.Save(c.Request.Context(), rec); err != nil {
			h.Logger.Warnw("failed to save payment record from webhook", "transaction_id", notif.TransactionID, "error", err)
		}
	case types.ChargeStatusCanceled, types.ChargeStatusRefused:
		h.Logger.Infow("payment canceled via webhook", "provider", provider, "transaction_id", notif.TransactionID, "status", notif.RawStatus)
	default:
		h.Logger.Infow("intermediate webhook status", "provider", provider, "transaction_id", notif.TransactionID, "status", notif.RawStatus)
	}
	return nil
}
