package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]ChargeStatus{
		"paid":       ChargeStatusPaid,
		"APPROVED":   ChargeStatusPaid,
		"confirmed":  ChargeStatusPaid,
		"completed":  ChargeStatusPaid,
		"canceled":   ChargeStatusCanceled,
		"cancelled":  ChargeStatusCanceled,
		"failed":     ChargeStatusCanceled,
		"refused":    ChargeStatusRefused,
		"created":    ChargeStatusCreated,
		"pending":    ChargeStatusPending,
		"processing": ChargeStatusPending,
		"":           ChargeStatusUnknown,
		"whatever":   ChargeStatusUnknown,
	}
	for raw, want := range cases {
		require.Equal(t, want, NormalizeStatus(raw), "raw=%q", raw)
	}
}

func TestCentavosFromReais_Rounds(t *testing.T) {
	require.Equal(t, int64(2490), CentavosFromReais(24.90))
	require.Equal(t, int64(10), CentavosFromReais(0.10))
	require.Equal(t, int64(100), CentavosFromReais(0.999))
	require.Equal(t, int64(50), CentavosFromReais(0.495))
}

func TestFormatBRL(t *testing.T) {
	require.Equal(t, "24,90", FormatBRL(2490))
	require.Equal(t, "0,50", FormatBRL(50))
}

func TestTerminal(t *testing.T) {
	require.True(t, ChargeStatusPaid.Terminal())
	require.True(t, ChargeStatusCanceled.Terminal())
	require.True(t, ChargeStatusRefused.Terminal())
	require.False(t, ChargeStatusPending.Terminal())
	require.False(t, ChargeStatusCreated.Terminal())
	require.False(t, ChargeStatusUnknown.Terminal())
}
