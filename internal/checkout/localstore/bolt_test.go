package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "checkout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)

	rec := &payments.Record{TransactionID: "abc123", Status: "paid", Value: 24.90, Plano: "Plano Mensal"}
	require.NoError(t, s.Save(rec))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, rec.TransactionID, got.TransactionID)
	require.Equal(t, rec.Value, got.Value)
}

func TestLoadEmpty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveDuplicateIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	rec := &payments.Record{TransactionID: "abc123", Status: "paid", Value: 24.90}
	require.NoError(t, s.Save(rec))
	require.NoError(t, s.Save(rec))

	got, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "abc123", got.TransactionID)
}

func TestSaveRequiresTransactionID(t *testing.T) {
	s := openTestStore(t)

	require.Error(t, s.Save(&payments.Record{Status: "paid"}))
	require.Error(t, s.Save(nil))
}

func TestClear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Save(&payments.Record{TransactionID: "abc123", Status: "paid"}))
	require.NoError(t, s.Clear())
	_, err := s.Load()
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Clear())
}
