package webhook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

func TestPushinPayParser(t *testing.T) {
	p, err := ParserFor(types.PaymentProviderPushinPay)
	require.NoError(t, err)

	n, err := p.Parse(map[string]any{
		"id":     "abc123",
		"status": "paid",
		"value":  float64(2490),
		"plano":  "Plano Mensal",
	})
	require.NoError(t, err)
	require.Equal(t, "abc123", n.TransactionID)
	require.Equal(t, types.ChargeStatusPaid, n.Status)
	require.Equal(t, 24.90, n.ValueReais)
	require.Equal(t, "Plano Mensal", n.PlanLabel)
}

func TestPushinPayParser_MissingID(t *testing.T) {
	p, _ := ParserFor(types.PaymentProviderPushinPay)
	_, err := p.Parse(map[string]any{"status": "paid"})
	require.ErrorIs(t, err, ErrMissingTransactionID)
}

func TestSyncPayParser_TopLevelShape(t *testing.T) {
	p, err := ParserFor(types.PaymentProviderSyncPay)
	require.NoError(t, err)

	n, err := p.Parse(map[string]any{
		"identifier": "sp-9",
		"status":     "completed",
		"amount":     24.9,
	})
	require.NoError(t, err)
	require.Equal(t, "sp-9", n.TransactionID)
	require.Equal(t, types.ChargeStatusPaid, n.Status)
	require.Equal(t, 24.9, n.ValueReais)
}

func TestSyncPayParser_NestedDataShape(t *testing.T) {
	p, _ := ParserFor(types.PaymentProviderSyncPay)

	n, err := p.Parse(map[string]any{
		"data": map[string]any{
			"reference_id": "sp-10",
			"status":       "CANCELLED",
			"amount":       "12.50",
			"description":  "Plano Anual",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "sp-10", n.TransactionID)
	require.Equal(t, types.ChargeStatusCanceled, n.Status)
	require.Equal(t, 12.5, n.ValueReais)
	require.Equal(t, "Plano Anual", n.PlanLabel)
}

func TestSyncPayParser_MissingID(t *testing.T) {
	p, _ := ParserFor(types.PaymentProviderSyncPay)
	_, err := p.Parse(map[string]any{"status": "completed"})
	require.ErrorIs(t, err, ErrMissingTransactionID)
}

func TestParserForUnknownProvider(t *testing.T) {
	_, err := ParserFor(types.PaymentProvider("stripe"))
	require.Error(t, err)
}
