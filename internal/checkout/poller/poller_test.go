package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/client"
)

// scriptedQuerier returns one scripted outcome per call, repeating the last
// one forever.
type scriptedQuerier struct {
	mu      sync.Mutex
	script  []queryResult
	calls   atomic.Int64
	release chan struct{} // when set, every call blocks on it
}

func (q *scriptedQuerier) CheckPayment(ctx context.Context, _ string) (*client.Charge, error) {
	q.calls.Add(1)
	if q.release != nil {
		select {
		case <-q.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	res := q.script[0]
	if len(q.script) > 1 {
		q.script = q.script[1:]
	}
	return res.charge, res.err
}

func statuses(ss ...string) *scriptedQuerier {
	q := &scriptedQuerier{}
	for _, s := range ss {
		q.script = append(q.script, queryResult{charge: &client.Charge{Status: s}})
	}
	return q
}

type memSink struct {
	mu   sync.Mutex
	recs []*payments.Record
	err  error
}

func (m *memSink) Save(rec *payments.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memSink) SavePayment(_ context.Context, rec *payments.Record) error {
	return m.Save(rec)
}

func (m *memSink) saved() []*payments.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*payments.Record(nil), m.recs...)
}

func fastConfig() Config {
	return Config{
		Interval:      5 * time.Millisecond,
		MinInterval:   5 * time.Millisecond,
		MaxAttempts:   300,
		RedirectDelay: 5 * time.Millisecond,
	}
}

func waitForState(t *testing.T, p *Poller, want State) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if p.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("state never became %s, still %s", want, p.State())
		case <-time.After(time.Millisecond):
		}
	}
}

func waitForEvent(t *testing.T, p *Poller, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-p.Events():
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("expected event never arrived")
		}
	}
}

func TestHappyPathConfirms(t *testing.T) {
	q := statuses("pending", "pending", "pending", "paid")
	local, remote := &memSink{}, &memSink{}
	p := New(fastConfig(), q, local, remote, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{
		TransactionID: "abc123", ValueReais: 24.90, PlanLabel: "Plano Mensal",
	}))

	ev := waitForEvent(t, p, func(ev Event) bool { return ev.Record != nil })
	require.Equal(t, StateConfirmed, ev.State)
	require.Equal(t, "abc123", ev.Record.TransactionID)
	require.Equal(t, 24.90, ev.Record.Value)
	require.Equal(t, "Plano Mensal", ev.Record.Plano)

	require.Len(t, local.saved(), 1)
	require.Len(t, remote.saved(), 1)

	redirect := waitForEvent(t, p, func(ev Event) bool { return ev.RedirectURL != "" })
	require.Contains(t, redirect.RedirectURL, "/agradecimento?")
	require.Contains(t, redirect.RedirectURL, "id=abc123")
	require.Contains(t, redirect.RedirectURL, "status=paid")
}

func TestCanceledStopsWithoutRedirect(t *testing.T) {
	q := statuses("pending", "pending", "pending", "pending", "canceled")
	p := New(fastConfig(), q, &memSink{}, &memSink{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123"}))

	ev := waitForEvent(t, p, func(ev Event) bool { return ev.State == StateCanceled })
	require.Equal(t, TextCanceled, ev.StatusText)
	waitForState(t, p, StateCanceled)

	// No redirect follows a cancellation.
	select {
	case ev := <-p.Events():
		require.Empty(t, ev.RedirectURL)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotFoundKeepsPolling(t *testing.T) {
	q := &scriptedQuerier{script: []queryResult{
		{err: client.ErrChargeNotFound},
		{err: errors.New("upstream 502")},
		{charge: &client.Charge{Status: "paid"}},
	}}
	p := New(fastConfig(), q, &memSink{}, &memSink{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123"}))
	waitForState(t, p, StateConfirmed)
}

func TestUnknownStatusKeepsPolling(t *testing.T) {
	q := statuses("something_new", "paid")
	p := New(fastConfig(), q, &memSink{}, &memSink{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123"}))
	waitForState(t, p, StateConfirmed)
}

func TestAttemptCeilingTimesOut(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 5
	q := statuses("pending")
	p := New(cfg, q, &memSink{}, &memSink{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123"}))

	ev := waitForEvent(t, p, func(ev Event) bool { return ev.State == StateTimedOut })
	require.Equal(t, TextTimedOut, ev.StatusText)
	waitForState(t, p, StateTimedOut)
}

func TestStopIsIdempotent(t *testing.T) {
	p := New(fastConfig(), statuses("pending"), &memSink{}, &memSink{}, zap.NewNop().Sugar())

	// Stopping a never-started poller is a no-op.
	p.Stop()
	require.Equal(t, StateIdle, p.State())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123"}))
	p.Stop()
	p.Stop()
	require.Equal(t, StateStopped, p.State())
}

func TestStartReplacesActiveSession(t *testing.T) {
	p := New(fastConfig(), statuses("pending"), &memSink{}, &memSink{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "first"}))
	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "second"}))

	// The first session was stopped before the second began.
	waitForEvent(t, p, func(ev Event) bool {
		return ev.State == StateStopped && ev.TransactionID == "first"
	})
	require.Equal(t, StatePolling, p.State())
	p.Stop()
}

func TestThrottleSkipsTicksWhileQueryInFlight(t *testing.T) {
	q := statuses("pending")
	q.release = make(chan struct{})
	p := New(fastConfig(), q, &memSink{}, &memSink{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123"}))

	// Many ticks fire while the first query hangs; none may overlap it.
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int64(1), q.calls.Load())

	close(q.release)
	p.Stop()
}

func TestTerminalStateSurvivesStop(t *testing.T) {
	q := statuses("paid")
	p := New(fastConfig(), q, &memSink{}, &memSink{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123"}))
	waitForState(t, p, StateConfirmed)

	// A stop after confirmation must not demote the state.
	p.Stop()
	require.Equal(t, StateConfirmed, p.State())
}

func TestConfirmationSurvivesSinkFailures(t *testing.T) {
	local := &memSink{err: errors.New("disk full")}
	remote := &memSink{err: errors.New("backend down")}
	p := New(fastConfig(), statuses("paid"), local, remote, zap.NewNop().Sugar())

	require.NoError(t, p.Start(context.Background(), Charge{TransactionID: "abc123", ValueReais: 24.90}))
	waitForState(t, p, StateConfirmed)
}

func TestStartRequiresTransactionID(t *testing.T) {
	p := New(fastConfig(), statuses("pending"), &memSink{}, &memSink{}, zap.NewNop().Sugar())
	require.Error(t, p.Start(context.Background(), Charge{}))
}
