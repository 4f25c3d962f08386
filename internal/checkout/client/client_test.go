package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, types.PaymentProviderPushinPay, zap.NewNop().Sugar())
}

func TestCreatePix(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pushinpay", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "create-pix", body["action"])
		require.Equal(t, 24.90, body["valor"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true, "identifier": "abc123", "status": "created",
			"pix_code": "00020126pix", "amount": 2490,
		})
	})

	charge, err := c.CreatePix(context.Background(), 24.90, "Plano Mensal")
	require.NoError(t, err)
	require.Equal(t, "abc123", charge.Identifier)
	require.Equal(t, "00020126pix", charge.PixCode)
	require.Equal(t, int64(2490), charge.Amount)
}

func TestCreatePixWithoutIdentifierFails(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	_, err := c.CreatePix(context.Background(), 24.90, "")
	require.Error(t, err)
}

func TestCheckPaymentNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.CheckPayment(context.Background(), "missing")
	require.ErrorIs(t, err, ErrChargeNotFound)
}

func TestCheckPaymentErrorCarriesMessage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"message": "Ação inválida"})
	})

	_, err := c.CheckPayment(context.Background(), "abc123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Ação inválida")
}

func TestSavePaymentAndCheckAccess(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/save-payment":
			var rec payments.Record
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
			require.Equal(t, "abc123", rec.TransactionID)
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		case "/api/check-access":
			require.Equal(t, "abc123", r.URL.Query().Get("transactionId"))
			json.NewEncoder(w).Encode(map[string]any{
				"hasAccess": true,
				"payment":   payments.Record{TransactionID: "abc123", Status: "paid"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	require.NoError(t, c.SavePayment(context.Background(), &payments.Record{TransactionID: "abc123", Status: "paid"}))

	ok, rec, err := c.CheckAccess(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", rec.TransactionID)
}
