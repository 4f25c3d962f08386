package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memKV struct {
	values map[string]string
	sets   map[string][]string
}

func newMemKV() *memKV {
	return &memKV{values: map[string]string{}, sets: map[string][]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", ErrNoRecord
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memKV) SAdd(_ context.Context, key, member string) error {
	m.sets[key] = append(m.sets[key], member)
	return nil
}

func TestStoreSaveAndGetRoundTrip(t *testing.T) {
	kv := newMemKV()
	store := NewStoreWithKV(kv, zap.NewNop().Sugar())

	err := store.Save(context.Background(), &Record{
		TransactionID: "abc123",
		Status:        "paid",
		Value:         24.90,
		Plano:         "Plano Mensal",
	})
	require.NoError(t, err)
	require.Contains(t, kv.values, "payment:abc123")
	require.Contains(t, kv.sets["payments:list"], "abc123")

	rec, err := store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", rec.TransactionID)
	require.Equal(t, 24.90, rec.Value)
	require.Equal(t, "Plano Mensal", rec.Plano)
	require.NotEmpty(t, rec.Timestamp)

	ok, got := store.HasAccess(context.Background(), "abc123")
	require.True(t, ok)
	require.Equal(t, "abc123", got.TransactionID)
}

func TestStoreSaveDefaults(t *testing.T) {
	store := NewStoreWithKV(newMemKV(), zap.NewNop().Sugar())

	require.NoError(t, store.Save(context.Background(), &Record{TransactionID: "tx-1"}))
	rec, err := store.Get(context.Background(), "tx-1")
	require.NoError(t, err)
	require.Equal(t, "paid", rec.Status)
	require.Equal(t, "Não especificado", rec.Plano)
}

func TestStoreSaveRequiresTransactionID(t *testing.T) {
	store := NewStoreWithKV(newMemKV(), zap.NewNop().Sugar())
	require.Error(t, store.Save(context.Background(), &Record{}))
	require.Error(t, store.Save(context.Background(), nil))
}

func TestHasAccessNegativeCases(t *testing.T) {
	store := NewStoreWithKV(newMemKV(), zap.NewNop().Sugar())

	ok, _ := store.HasAccess(context.Background(), "missing")
	require.False(t, ok)

	require.NoError(t, store.Save(context.Background(), &Record{TransactionID: "tx-2", Status: "pending"}))
	ok, _ = store.HasAccess(context.Background(), "tx-2")
	require.False(t, ok, "pending record must not grant access")
}
