package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/pkg/logctx"
)

// @Summary      Save confirmed payment
// @Description  Persists a confirmed payment record. Store failures never fail the request; the confirmation is authoritative on the client.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body payments.Record true "Confirmed payment record"
// @Success      200  {object}  map[string]any
// @Router       /api/save-payment [post]
func ApiSavePayment(store *payments.Store, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, base)

		var rec payments.Record
		if err := c.ShouldBindJSON(&rec); err != nil || rec.TransactionID == "" {
			c.JSON(http.StatusBadRequest, errorBody("transactionId é obrigatório"))
			return
		}

		if err := store.Save(c.Request.Context(), &rec); err != nil {
			// Best-effort bookkeeping: the payment is already confirmed, so
			// the caller still gets a success.
			log.Warnw("failed to save payment record", "transaction_id", rec.TransactionID, "error", err)
			c.JSON(http.StatusOK, gin.H{
				"success":       true,
				"message":       "Pagamento processado (erro ao salvar no banco)",
				"transactionId": rec.TransactionID,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"message":       "Pagamento salvo com sucesso",
			"transactionId": rec.TransactionID,
		})
	}
}

// @Summary      Check access
// @Description  Reports whether a transaction has a paid-equivalent record in the store.
// @Tags         Payment
// @Produce      json
// @Param        transactionId query string true "Transaction identifier"
// @Success      200  {object}  map[string]any
// @Router       /api/check-access [get]
func ApiCheckAccess(store *payments.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		transactionID := c.Query("transactionId")
		if transactionID == "" {
			c.JSON(http.StatusBadRequest, errorBody("transactionId é obrigatório"))
			return
		}

		ok, rec := store.HasAccess(c.Request.Context(), transactionID)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"hasAccess": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"hasAccess": true, "payment": rec})
	}
}

func RegisterPaymentRoutes(r gin.IRouter, store *payments.Store, log *zap.SugaredLogger) {
	r.POST("/save-payment", ApiSavePayment(store, log))
	r.GET("/save-payment", ApiCheckAccess(store))
	r.GET("/check-access", ApiCheckAccess(store))
}
