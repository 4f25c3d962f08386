// Package access answers "has this transaction been paid for" by consulting
// three tiers in order: the local Bolt record, the backend record store and
// finally the live provider. The live check is authoritative; the earlier
// tiers are caches.
package access

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/client"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/localstore"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// Backend is the subset of the API client the checker needs.
type Backend interface {
	CheckAccess(ctx context.Context, transactionID string) (bool, *payments.Record, error)
	CheckPayment(ctx context.Context, transactionID string) (*client.Charge, error)
	SavePayment(ctx context.Context, rec *payments.Record) error
}

// LocalStore is the subset of the Bolt store the checker needs.
type LocalStore interface {
	Load() (*payments.Record, error)
	Clear() error
}

// Checker resolves access for the transaction stored locally, or for an
// explicit transaction id.
type Checker struct {
	backend Backend
	local   LocalStore
	log     *zap.SugaredLogger
}

func NewChecker(backend Backend, local LocalStore, log *zap.SugaredLogger) *Checker {
	return &Checker{backend: backend, local: local, log: log}
}

// Check resolves access for a transaction id. When id is empty the locally
// stored confirmation supplies it.
func (c *Checker) Check(ctx context.Context, transactionID string) (bool, *payments.Record, error) {
	localRec := c.loadLocal()
	if transactionID == "" {
		if localRec == nil {
			return false, nil, nil
		}
		transactionID = localRec.TransactionID
	}

	// Tier 1: the local confirmation short-circuits the network entirely.
	if localRec != nil && localRec.TransactionID == transactionID && localRec.Paid() {
		return true, localRec, nil
	}

	// Tier 2: the backend record store.
	if ok, rec, err := c.backend.CheckAccess(ctx, transactionID); err != nil {
		c.log.Warnw("backend access check failed", "transaction_id", transactionID, "error", err)
	} else if ok {
		return true, rec, nil
	}

	// Tier 3: the live provider, authoritative when reachable.
	charge, err := c.backend.CheckPayment(ctx, transactionID)
	if err != nil {
		if errors.Is(err, client.ErrChargeNotFound) {
			return false, nil, nil
		}
		// Unreachable provider: fall back to whatever we have locally.
		c.log.Warnw("live payment check failed, using local record", "transaction_id", transactionID, "error", err)
		if localRec != nil && localRec.TransactionID == transactionID && localRec.Paid() {
			return true, localRec, nil
		}
		return false, nil, err
	}

	if types.IsPaid(charge.Status) {
		rec := localRec
		if rec == nil || rec.TransactionID != transactionID {
			rec = &payments.Record{
				TransactionID: transactionID,
				Status:        string(types.ChargeStatusPaid),
				Value:         types.ReaisFromCentavos(charge.Amount),
			}
		}
		// Re-save server-side so the cheaper tier answers next time.
		if err := c.backend.SavePayment(ctx, rec); err != nil {
			c.log.Warnw("re-saving confirmation failed", "transaction_id", transactionID, "error", err)
		}
		return true, rec, nil
	}

	// The provider says this transaction is not paid; a stale local record
	// must not keep granting access.
	if localRec != nil && localRec.TransactionID == transactionID {
		if err := c.local.Clear(); err != nil {
			c.log.Warnw("clearing stale local record failed", "error", err)
		}
	}
	return false, nil, nil
}

func (c *Checker) loadLocal() *payments.Record {
	if c.local == nil {
		return nil
	}
	rec, err := c.local.Load()
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			c.log.Warnw("reading local record failed", "error", err)
		}
		return nil
	}
	return rec
}
