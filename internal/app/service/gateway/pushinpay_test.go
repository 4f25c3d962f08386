package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/maiavyxen-hub/telapriv/pkg/config"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

func pushinPayForTest(t *testing.T, handler http.Handler) (*PushinPay, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &cfgpkg.Config{PushinPay: cfgpkg.PushinPayConfig{BaseURL: srv.URL, Token: "test-token"}}
	return NewPushinPay(cfg, zap.NewNop().Sugar()), srv
}

func TestPushinPayCreateCharge_AmountTooLow_NoNetworkCall(t *testing.T) {
	called := false
	gw, _ := pushinPayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := gw.CreateCharge(context.Background(), &CreateChargeRequest{AmountReais: 0.10, PlanLabel: "Plano Mensal"})
	require.ErrorIs(t, err, ErrAmountTooLow)
	require.False(t, called, "validation must reject before any network call")
}

func TestPushinPayCreateCharge_OK(t *testing.T) {
	gw, _ := pushinPayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pix/cashIn", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc123","status":"created","value":2490,"qr_code":"00020126pix-payload","qr_code_base64":"iVBORw0KGgo="}`))
	}))

	charge, err := gw.CreateCharge(context.Background(), &CreateChargeRequest{AmountReais: 24.90, PlanLabel: "Plano Mensal"})
	require.NoError(t, err)
	require.Equal(t, "abc123", charge.Identifier)
	require.Equal(t, types.ChargeStatusCreated, charge.Status)
	require.Equal(t, int64(2490), charge.AmountCentavos)
	require.NotEmpty(t, charge.PixCode)
	require.True(t, charge.Usable())
}

func TestPushinPayCreateCharge_Refused(t *testing.T) {
	gw, _ := pushinPayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc123","status":"refused","message":"card risk"}`))
	}))

	_, err := gw.CreateCharge(context.Background(), &CreateChargeRequest{AmountReais: 9.90})
	require.ErrorIs(t, err, ErrChargeRefused)
	require.Contains(t, err.Error(), "card risk")
}

func TestPushinPayCreateCharge_MissingPayloadsIsMalformed(t *testing.T) {
	gw, _ := pushinPayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc123","status":"created","value":990}`))
	}))

	_, err := gw.CreateCharge(context.Background(), &CreateChargeRequest{AmountReais: 9.90})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestPushinPayCreateCharge_NonJSONBodyIsMalformed(t *testing.T) {
	gw, _ := pushinPayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>maintenance</html>"))
	}))

	_, err := gw.CreateCharge(context.Background(), &CreateChargeRequest{AmountReais: 9.90})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestPushinPayQueryCharge_NotFound(t *testing.T) {
	gw, _ := pushinPayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := gw.QueryCharge(context.Background(), "missing")
	require.ErrorIs(t, err, ErrChargeNotFound)
}

func TestPushinPayQueryCharge_NormalizesStatus(t *testing.T) {
	gw, _ := pushinPayForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/abc123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc123","status":"APPROVED","value":2490,"paid_at":"2026-01-02T03:04:05Z"}`))
	}))

	res, err := gw.QueryCharge(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, types.ChargeStatusPaid, res.Status)
	require.Equal(t, "APPROVED", res.RawStatus)
	require.Equal(t, int64(2490), res.AmountCentavos)
	require.Equal(t, "2026-01-02T03:04:05Z", res.PaidAt)
}
