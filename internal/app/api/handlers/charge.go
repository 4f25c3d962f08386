package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/gateway"
	"github.com/maiavyxen-hub/telapriv/pkg/logctx"

	"go.uber.org/zap"
)

// chargeActionRequest is the action-dispatch body the checkout client sends
// to the provider proxy routes.
type chargeActionRequest struct {
	Action        string  `json:"action" binding:"required"`
	Valor         float64 `json:"valor"`
	Plano         string  `json:"plano"`
	TransactionID string  `json:"transactionId"`
}

// chargeResponse is the normalized provider response shape.
type chargeResponse struct {
	Success       bool   `json:"success"`
	Hash          string `json:"hash"`
	Identifier    string `json:"identifier"`
	Status        string `json:"status"`
	PixCode       string `json:"pix_code,omitempty"`
	QRCode        string `json:"qr_code,omitempty"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	PaidAt        string `json:"paid_at,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg, "message": msg}
}

// @Summary      Provider charge actions
// @Description  Dispatches create-pix and check-payment against one payment provider.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body handlers.chargeActionRequest true "Charge action request"
// @Success      200  {object}  handlers.chargeResponse
// @Router       /api/{provider} [post]
func ApiChargeAction(gw gateway.Gateway, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logctx.FromGin(c, base)

		var req chargeActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody("Ação inválida"))
			return
		}

		switch req.Action {
		case "create-pix":
			charge, err := gw.CreateCharge(c.Request.Context(), &gateway.CreateChargeRequest{
				AmountReais: req.Valor,
				PlanLabel:   req.Plano,
			})
			if err != nil {
				log.Warnw("create charge failed", "provider", gw.Provider(), "error", err)
				switch {
				case errors.Is(err, gateway.ErrAmountTooLow):
					c.JSON(http.StatusBadRequest, errorBody(err.Error()))
				case errors.Is(err, gateway.ErrChargeRefused):
					c.JSON(http.StatusPaymentRequired, errorBody(err.Error()))
				case errors.Is(err, gateway.ErrMalformedResponse):
					c.JSON(http.StatusBadGateway, errorBody(err.Error()))
				default:
					c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
				}
				return
			}
			c.JSON(http.StatusOK, chargeResponse{
				Success:       true,
				Hash:          charge.Identifier,
				Identifier:    charge.Identifier,
				Status:        string(charge.Status),
				PixCode:       charge.PixCode,
				QRCode:        charge.QRCodeBase64,
				Amount:        charge.AmountCentavos,
				PaymentMethod: "pix",
				ExpiresAt:     charge.ExpiresAt,
				CreatedAt:     charge.CreatedAt.Format(time.RFC3339),
			})

		case "check-payment":
			if req.TransactionID == "" {
				c.JSON(http.StatusBadRequest, errorBody("transactionId é obrigatório"))
				return
			}
			res, err := gw.QueryCharge(c.Request.Context(), req.TransactionID)
			if err != nil {
				if errors.Is(err, gateway.ErrChargeNotFound) {
					c.JSON(http.StatusNotFound, errorBody("Transação não encontrada"))
					return
				}
				log.Warnw("query charge failed", "provider", gw.Provider(), "transaction_id", req.TransactionID, "error", err)
				c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
				return
			}
			c.JSON(http.StatusOK, chargeResponse{
				Success:       true,
				Hash:          res.Identifier,
				Identifier:    res.Identifier,
				Status:        string(res.Status),
				Amount:        res.AmountCentavos,
				PaymentMethod: "pix",
				PaidAt:        res.PaidAt,
			})

		default:
			c.JSON(http.StatusBadRequest, errorBody("Ação inválida"))
		}
	}
}

func RegisterChargeRoutes(r gin.IRouter, reg *gateway.Registry, log *zap.SugaredLogger) {
	for _, gw := range reg.All() {
		r.POST("/"+string(gw.Provider()), ApiChargeAction(gw, log))
	}
}
