package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/webhook"
	"github.com/maiavyxen-hub/telapriv/pkg/logctx"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// @Summary      Provider webhook
// @Description  Receives payment status notifications from a provider. Internal processing failures still answer 200 so the provider does not retry.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/webhook/{provider} [post]
func ApiProviderWebhook(h *webhook.Handler, provider types.PaymentProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, h.Logger)
		log.Infow("webhook received", "provider", provider)

		if !h.Authorized(c, provider) {
			log.Warnw("webhook token rejected", "provider", provider)
			c.JSON(http.StatusUnauthorized, errorBody("Token inválido"))
			return
		}

		if err := h.HandleNotification(c, provider); err != nil {
			if errors.Is(err, webhook.ErrMissingTransactionID) {
				c.JSON(http.StatusBadRequest, errorBody("Payload inválido - ID de transação não encontrado"))
				return
			}
			// Anything past shape validation answers 200: a retry storm is
			// worse than a dropped notification, polling covers the gap.
			log.Errorw("webhook handling failed", "provider", provider, "error", err)
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "Erro ao processar webhook"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook recebido com sucesso"})
	}
}

func RegisterWebhookRoutes(r gin.IRouter, h *webhook.Handler) {
	r.POST("/webhook/"+string(types.PaymentProviderPushinPay), ApiProviderWebhook(h, types.PaymentProviderPushinPay))
	r.POST("/webhook/"+string(types.PaymentProviderSyncPay), ApiProviderWebhook(h, types.PaymentProviderSyncPay))
}
