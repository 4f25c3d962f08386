package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

const (
	recordKeyPrefix = "payment:"
	knownTxSetKey   = "payments:list"
)

// ErrNoRecord is returned when no confirmation exists for a transaction.
var ErrNoRecord = errors.New("payment record not found")

// Record is the confirmed-access record persisted per transaction. Field
// names match the wire contract shared with the checkout agent.
type Record struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	Value         float64 `json:"value"`
	Timestamp     string  `json:"timestamp"`
	Plano         string  `json:"plano"`
	CreatedAt     string  `json:"createdAt,omitempty"`
}

// Paid reports whether the stored status is a paid synonym.
func (r *Record) Paid() bool {
	return r != nil && types.IsPaid(r.Status)
}

// KV is the narrow key-value surface the store needs; redis in production,
// an in-memory map in tests.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SAdd(ctx context.Context, key, member string) error
}

type redisKV struct{ client *redis.Client }

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoRecord
	}
	return v, err
}

func (r redisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r redisKV) SAdd(ctx context.Context, key, member string) error {
	return r.client.SAdd(ctx, key, member).Err()
}

// Store is the server-side Payment Record Store. Writes are last-write-wins;
// payment status only moves toward paid, so duplicate terminal writes are
// idempotent.
type Store struct {
	kv  KV
	log *zap.SugaredLogger
}

func NewStore(client *redis.Client, log *zap.SugaredLogger) *Store {
	return &Store{kv: redisKV{client: client}, log: log}
}

// NewStoreWithKV is used by tests and by any embedded deployment without redis.
func NewStoreWithKV(kv KV, log *zap.SugaredLogger) *Store {
	return &Store{kv: kv, log: log}
}

// Save persists a confirmation record and registers the transaction id in
// the known-transactions set.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.TransactionID == "" {
		return fmt.Errorf("transactionId is required")
	}
	if rec.Status == "" {
		rec.Status = string(types.ChargeStatusPaid)
	}
	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if rec.Plano == "" {
		rec.Plano = "Não especificado"
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal payment record: %w", err)
	}
	if err := s.kv.Set(ctx, recordKeyPrefix+rec.TransactionID, string(data)); err != nil {
		return fmt.Errorf("save payment record: %w", err)
	}
	if err := s.kv.SAdd(ctx, knownTxSetKey, rec.TransactionID); err != nil {
		// The record itself is saved; the set is bookkeeping only.
		s.log.Warnw("failed to index transaction id", "transaction_id", rec.TransactionID, "error", err)
	}
	s.log.Infow("payment record saved", "transaction_id", rec.TransactionID, "status", rec.Status)
	return nil
}

func (s *Store) Get(ctx context.Context, transactionID string) (*Record, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transactionId is required")
	}
	raw, err := s.kv.Get(ctx, recordKeyPrefix+transactionID)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode payment record: %w", err)
	}
	return &rec, nil
}

// HasAccess checks for a paid-equivalent record. Store failures degrade to
// no-access rather than erroring: the caller falls through to the live
// provider check.
func (s *Store) HasAccess(ctx context.Context, transactionID string) (bool, *Record) {
	rec, err := s.Get(ctx, transactionID)
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			s.log.Warnw("payment record lookup failed", "transaction_id", transactionID, "error", err)
		}
		return false, nil
	}
	if rec.Paid() {
		return true, rec
	}
	return false, nil
}
