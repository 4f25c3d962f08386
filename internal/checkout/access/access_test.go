package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/client"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/localstore"
)

type fakeBackend struct {
	accessOK    bool
	accessRec   *payments.Record
	accessErr   error
	charge      *client.Charge
	chargeErr   error
	savedRecs   []*payments.Record
	accessCalls int
	chargeCalls int
}

func (f *fakeBackend) CheckAccess(_ context.Context, _ string) (bool, *payments.Record, error) {
	f.accessCalls++
	return f.accessOK, f.accessRec, f.accessErr
}

func (f *fakeBackend) CheckPayment(_ context.Context, _ string) (*client.Charge, error) {
	f.chargeCalls++
	return f.charge, f.chargeErr
}

func (f *fakeBackend) SavePayment(_ context.Context, rec *payments.Record) error {
	f.savedRecs = append(f.savedRecs, rec)
	return nil
}

type fakeLocal struct {
	rec     *payments.Record
	cleared bool
}

func (f *fakeLocal) Load() (*payments.Record, error) {
	if f.rec == nil {
		return nil, localstore.ErrNotFound
	}
	return f.rec, nil
}

func (f *fakeLocal) Clear() error {
	f.cleared = true
	f.rec = nil
	return nil
}

func newChecker(b *fakeBackend, l *fakeLocal) *Checker {
	return NewChecker(b, l, zap.NewNop().Sugar())
}

func TestLocalRecordShortCircuits(t *testing.T) {
	b := &fakeBackend{}
	l := &fakeLocal{rec: &payments.Record{TransactionID: "abc123", Status: "paid", Value: 24.90}}

	ok, rec, err := newChecker(b, l).Check(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", rec.TransactionID)
	require.Zero(t, b.accessCalls)
	require.Zero(t, b.chargeCalls)
}

func TestEmptyIDUsesLocalRecord(t *testing.T) {
	b := &fakeBackend{}
	l := &fakeLocal{rec: &payments.Record{TransactionID: "abc123", Status: "paid"}}

	ok, rec, err := newChecker(b, l).Check(context.Background(), "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", rec.TransactionID)
}

func TestNoLocalNoIDDeniesWithoutNetwork(t *testing.T) {
	b := &fakeBackend{}
	ok, _, err := newChecker(b, &fakeLocal{}).Check(context.Background(), "")
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, b.accessCalls)
}

func TestBackendStoreGrants(t *testing.T) {
	b := &fakeBackend{accessOK: true, accessRec: &payments.Record{TransactionID: "abc123", Status: "paid"}}

	ok, rec, err := newChecker(b, &fakeLocal{}).Check(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc123", rec.TransactionID)
	require.Zero(t, b.chargeCalls)
}

func TestLivePositiveResavesServerSide(t *testing.T) {
	b := &fakeBackend{charge: &client.Charge{Status: "approved", Amount: 2490}}

	ok, rec, err := newChecker(b, &fakeLocal{}).Check(context.Background(), "abc123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 24.90, rec.Value)
	require.Len(t, b.savedRecs, 1)
	require.Equal(t, "abc123", b.savedRecs[0].TransactionID)
}

func TestLiveNegativeClearsStaleLocal(t *testing.T) {
	b := &fakeBackend{charge: &client.Charge{Status: "pending"}}
	l := &fakeLocal{rec: &payments.Record{TransactionID: "abc123", Status: "pending"}}

	ok, _, err := newChecker(b, l).Check(context.Background(), "abc123")
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, l.cleared)
}

func TestLiveNotFoundDenies(t *testing.T) {
	b := &fakeBackend{chargeErr: client.ErrChargeNotFound}

	ok, _, err := newChecker(b, &fakeLocal{}).Check(context.Background(), "abc123")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLiveFailureFallsBackToLocal(t *testing.T) {
	b := &fakeBackend{accessErr: errors.New("backend down"), chargeErr: errors.New("provider down")}
	// A stale-but-paid local record for another id does not grant.
	l := &fakeLocal{rec: &payments.Record{TransactionID: "other", Status: "paid"}}

	ok, _, err := newChecker(b, l).Check(context.Background(), "abc123")
	require.Error(t, err)
	require.False(t, ok)
}
