package webhook

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// ErrMissingTransactionID rejects a webhook delivery that carries no usable
// transaction identifier. This is the only payload shape error; everything
// else is tolerated.
var ErrMissingTransactionID = errors.New("webhook payload has no transaction id")

// Notification is the provider-independent content of one webhook delivery.
type Notification struct {
	TransactionID string
	RawStatus     string
	Status        types.ChargeStatus
	ValueReais    float64
	PlanLabel     string
}

// Parser extracts a Notification from one provider's webhook payload shape.
type Parser interface {
	Parse(payload map[string]any) (*Notification, error)
}

// ParserFor returns the parser for a provider.
func ParserFor(provider types.PaymentProvider) (Parser, error) {
	switch provider {
	case types.PaymentProviderPushinPay:
		return pushinPayParser{}, nil
	case types.PaymentProviderSyncPay:
		return syncPayParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// PushinPay sends a flat payload with the charge id and the value in
// centavos.
type pushinPayParser struct{}

func (pushinPayParser) Parse(payload map[string]any) (*Notification, error) {
	id := firstString(payload, "id", "transaction_id", "hash")
	if id == "" {
		return nil, ErrMissingTransactionID
	}
	raw := firstString(payload, "status")
	centavos := firstNumber(payload, "value", "amount")
	return &Notification{
		TransactionID: id,
		RawStatus:     raw,
		Status:        types.NormalizeStatus(raw),
		ValueReais:    centavos / 100,
		PlanLabel:     firstString(payload, "plano", "description"),
	}, nil
}

// SyncPay webhooks come in several shapes: identifiers and statuses may sit
// at the top level or under "data", and amounts are in reais.
type syncPayParser struct{}

func (syncPayParser) Parse(payload map[string]any) (*Notification, error) {
	data, _ := payload["data"].(map[string]any)

	id := firstString(payload, "identifier", "reference_id", "id")
	if id == "" && data != nil {
		id = firstString(data, "identifier", "reference_id", "id")
	}
	if id == "" {
		return nil, ErrMissingTransactionID
	}

	raw := firstString(payload, "status")
	if raw == "" && data != nil {
		raw = firstString(data, "status")
	}

	amount := firstNumber(payload, "amount", "value")
	if amount == 0 && data != nil {
		amount = firstNumber(data, "amount", "value")
	}

	plan := firstString(payload, "description")
	if plan == "" && data != nil {
		plan = firstString(data, "description")
	}

	return &Notification{
		TransactionID: id,
		RawStatus:     raw,
		Status:        types.NormalizeStatus(raw),
		ValueReais:    amount,
		PlanLabel:     plan,
	}, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			if v != 0 {
				return v
			}
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}
