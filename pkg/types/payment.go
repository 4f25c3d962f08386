package types

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

type PaymentProvider string

const (
	PaymentProviderPushinPay PaymentProvider = "pushinpay"
	PaymentProviderSyncPay   PaymentProvider = "syncpay"
)

// ChargeStatus is the normalized status set shared by both providers.
type ChargeStatus string

const (
	ChargeStatusCreated  ChargeStatus = "created"
	ChargeStatusPending  ChargeStatus = "pending"
	ChargeStatusPaid     ChargeStatus = "paid"
	ChargeStatusCanceled ChargeStatus = "canceled"
	ChargeStatusRefused  ChargeStatus = "refused"
	ChargeStatusUnknown  ChargeStatus = "unknown"
)

var paidSynonyms = []string{"paid", "approved", "confirmed", "completed"}

var canceledSynonyms = []string{"canceled", "cancelled", "failed"}

// NormalizeStatus maps a raw provider status string onto the shared set.
// Empty or unrecognized strings map to unknown; callers polling a pending
// charge treat unknown the same as pending.
func NormalizeStatus(raw string) ChargeStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return ChargeStatusUnknown
	case lo.Contains(paidSynonyms, s):
		return ChargeStatusPaid
	case lo.Contains(canceledSynonyms, s):
		return ChargeStatusCanceled
	case s == "refused":
		return ChargeStatusRefused
	case s == "created":
		return ChargeStatusCreated
	case s == "pending", s == "processing":
		return ChargeStatusPending
	default:
		return ChargeStatusUnknown
	}
}

// IsPaid reports whether a raw status string is one of the paid synonyms.
func IsPaid(raw string) bool {
	return NormalizeStatus(raw) == ChargeStatusPaid
}

func (s ChargeStatus) Terminal() bool {
	return s == ChargeStatusPaid || s == ChargeStatusCanceled || s == ChargeStatusRefused
}

// CentavosFromReais converts a value in reais to centavos, rounding to the
// nearest centavo.
func CentavosFromReais(reais float64) int64 {
	return int64(math.Round(reais * 100))
}

func ReaisFromCentavos(centavos int64) float64 {
	return float64(centavos) / 100
}

// FormatBRL renders centavos as "19,90" (comma decimal, no currency sign).
func FormatBRL(centavos int64) string {
	return strings.Replace(fmt.Sprintf("%.2f", ReaisFromCentavos(centavos)), ".", ",", 1)
}
