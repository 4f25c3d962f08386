// Package poller drives the payment confirmation loop: a ticker-driven state
// machine that queries the backend for a charge's status until it reaches a
// terminal state, then persists the confirmation and schedules the redirect.
package poller

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
	"github.com/maiavyxen-hub/telapriv/internal/checkout/client"
	"github.com/maiavyxen-hub/telapriv/pkg/types"
)

// State is the lifecycle of one poll session.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateConfirmed State = "confirmed"
	StateCanceled  State = "canceled"
	StateTimedOut  State = "timed_out"
	StateStopped   State = "stopped"
)

// Terminal reports whether the session can never leave this state.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateCanceled, StateTimedOut, StateStopped:
		return true
	}
	return false
}

// Status texts surfaced at each transition.
const (
	TextAwaiting  = "Aguardando pagamento..."
	TextConfirmed = "Pagamento confirmado! Redirecionando..."
	TextCanceled  = "Pagamento cancelado. Gere um novo pagamento."
	TextTimedOut  = "Tempo esgotado. Gere um novo pagamento."
	TextStopped   = "Pagamento cancelado pelo usuário."
)

// Config tunes one poller. Zero values fall back to the defaults the site
// has always used: 3s ticks, 3s minimum spacing, 300 attempts, 1s redirect
// delay.
type Config struct {
	Interval      time.Duration
	MinInterval   time.Duration
	MaxAttempts   int
	RedirectDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 3 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 300
	}
	if c.RedirectDelay <= 0 {
		c.RedirectDelay = time.Second
	}
	return c
}

// Querier reports the current provider status of a transaction.
// *client.Client satisfies it.
type Querier interface {
	CheckPayment(ctx context.Context, transactionID string) (*client.Charge, error)
}

// LocalSink persists a confirmation on this machine. *localstore.Store
// satisfies it.
type LocalSink interface {
	Save(rec *payments.Record) error
}

// RemoteSink persists a confirmation server-side. *client.Client satisfies
// it.
type RemoteSink interface {
	SavePayment(ctx context.Context, rec *payments.Record) error
}

// Charge is what a session polls for.
type Charge struct {
	TransactionID string
	ValueReais    float64
	PlanLabel     string
}

// Event is emitted on every state transition. Record is set once on
// confirmation; RedirectURL is set on the delayed redirect event that
// follows it.
type Event struct {
	State         State
	TransactionID string
	StatusText    string
	Record        *payments.Record
	RedirectURL   string
}

type queryResult struct {
	charge *client.Charge
	err    error
}

type session struct {
	gen    uint64
	charge Charge

	state       State
	attempts    int
	lastQueryAt time.Time
	inFlight    bool

	cancel  context.CancelFunc
	done    chan struct{}
	results chan queryResult

	redirectOnce sync.Once
}

// Poller owns at most one active session. Start replaces the current
// session; Stop is idempotent. All session fields are mutated only by the
// run loop; the mutex covers the session pointer and state reads.
type Poller struct {
	cfg    Config
	q      Querier
	local  LocalSink
	remote RemoteSink
	log    *zap.SugaredLogger

	events chan Event

	mu   sync.Mutex
	gen  uint64
	sess *session
}

func New(cfg Config, q Querier, local LocalSink, remote RemoteSink, log *zap.SugaredLogger) *Poller {
	return &Poller{
		cfg:    cfg.withDefaults(),
		q:      q,
		local:  local,
		remote: remote,
		log:    log,
		events: make(chan Event, 16),
	}
}

// Events delivers transition events. The channel is buffered; events are
// dropped rather than blocking the state machine when nobody reads.
func (p *Poller) Events() <-chan Event { return p.events }

// State returns the active session's state, or Idle when none exists.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sess == nil {
		return StateIdle
	}
	return p.sess.state
}

// Start begins polling for the given charge. Any active session is stopped
// first, so at most one ticker ever runs.
func (p *Poller) Start(ctx context.Context, charge Charge) error {
	if charge.TransactionID == "" {
		return errors.New("charge requires a transaction id")
	}
	p.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.gen++
	s := &session{
		gen:     p.gen,
		charge:  charge,
		state:   StatePolling,
		cancel:  cancel,
		done:    make(chan struct{}),
		results: make(chan queryResult, 4),
	}
	p.sess = s
	p.mu.Unlock()

	p.log.Infow("poll session started", "session", s.gen, "transaction_id", charge.TransactionID)
	p.emit(Event{State: StatePolling, TransactionID: charge.TransactionID, StatusText: TextAwaiting})

	go p.run(runCtx, s)
	return nil
}

// Stop ends the active session, if any, and waits for its loop to exit.
// Stopping twice, or with no session, is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	s := p.sess
	p.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (p *Poller) run(ctx context.Context, s *session) {
	defer close(s.done)
	defer s.cancel()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.finish(s, StateStopped)
			return

		case <-ticker.C:
			s.attempts++
			if s.attempts > p.cfg.MaxAttempts {
				p.finish(s, StateTimedOut)
				return
			}
			// Skip the tick while a query is in flight or the last one was
			// dispatched too recently. Skipped ticks still count attempts.
			if s.inFlight || (!s.lastQueryAt.IsZero() && time.Since(s.lastQueryAt) < p.cfg.MinInterval) {
				continue
			}
			s.inFlight = true
			// Set before awaiting the response so a slow query cannot let
			// the next tick overlap it.
			s.lastQueryAt = time.Now()
			go func() {
				charge, err := p.q.CheckPayment(ctx, s.charge.TransactionID)
				select {
				case s.results <- queryResult{charge: charge, err: err}:
				case <-ctx.Done():
				}
			}()

		case res := <-s.results:
			s.inFlight = false
			if next := p.handleResult(s, res); next.Terminal() {
				p.finish(s, next)
				return
			}
		}
	}
}

// handleResult maps one query outcome to the session's next state. Failures
// and not-found are swallowed; only paid and canceled equivalents end the
// session.
func (p *Poller) handleResult(s *session, res queryResult) State {
	if res.err != nil {
		if errors.Is(res.err, client.ErrChargeNotFound) {
			p.log.Debugw("charge not indexed yet", "session", s.gen, "attempt", s.attempts)
		} else {
			p.log.Warnw("status query failed", "session", s.gen, "attempt", s.attempts, "error", res.err)
		}
		return StatePolling
	}

	switch types.NormalizeStatus(res.charge.Status) {
	case types.ChargeStatusPaid:
		return StateConfirmed
	case types.ChargeStatusCanceled, types.ChargeStatusRefused:
		return StateCanceled
	default:
		// Pending, created and unrecognized statuses all keep waiting.
		return StatePolling
	}
}

// finish moves the session to a terminal state and runs its entry actions
// exactly once. A session already terminal stays as it is, so a stop racing
// a confirmation cannot undo it.
func (p *Poller) finish(s *session, st State) {
	p.mu.Lock()
	if s.state.Terminal() {
		p.mu.Unlock()
		return
	}
	s.state = st
	p.mu.Unlock()

	switch st {
	case StateConfirmed:
		p.confirm(s)
	case StateCanceled:
		p.log.Infow("payment canceled by provider", "session", s.gen, "transaction_id", s.charge.TransactionID)
		p.emit(Event{State: StateCanceled, TransactionID: s.charge.TransactionID, StatusText: TextCanceled})
	case StateTimedOut:
		p.log.Infow("poll session timed out", "session", s.gen, "attempts", s.attempts)
		p.emit(Event{State: StateTimedOut, TransactionID: s.charge.TransactionID, StatusText: TextTimedOut})
	case StateStopped:
		p.log.Infow("poll session stopped", "session", s.gen)
		p.emit(Event{State: StateStopped, TransactionID: s.charge.TransactionID, StatusText: TextStopped})
	}
}

func (p *Poller) confirm(s *session) {
	now := time.Now()
	rec := &payments.Record{
		TransactionID: s.charge.TransactionID,
		Status:        string(types.ChargeStatusPaid),
		Value:         s.charge.ValueReais,
		Plano:         s.charge.PlanLabel,
		Timestamp:     now.Format(time.RFC3339),
		CreatedAt:     now.Format(time.RFC3339),
	}

	// Local and remote persistence are independent best-effort writes.
	// Neither failure reverts the confirmation.
	if p.local != nil {
		if err := p.local.Save(rec); err != nil {
			p.log.Errorw("saving confirmation locally failed", "session", s.gen, "error", err)
		}
	}
	if p.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.remote.SavePayment(ctx, rec); err != nil {
			p.log.Errorw("saving confirmation remotely failed", "session", s.gen, "error", err)
		}
	}

	p.log.Infow("payment confirmed", "session", s.gen, "transaction_id", rec.TransactionID, "value", rec.Value)
	p.emit(Event{
		State:         StateConfirmed,
		TransactionID: rec.TransactionID,
		StatusText:    TextConfirmed,
		Record:        rec,
	})

	url := redirectURL(rec)
	time.AfterFunc(p.cfg.RedirectDelay, func() {
		s.redirectOnce.Do(func() {
			p.emit(Event{
				State:         StateConfirmed,
				TransactionID: rec.TransactionID,
				RedirectURL:   url,
			})
		})
	})
}

func redirectURL(rec *payments.Record) string {
	q := url.Values{}
	q.Set("id", rec.TransactionID)
	q.Set("valor", types.FormatBRL(types.CentavosFromReais(rec.Value)))
	q.Set("status", rec.Status)
	return fmt.Sprintf("/agradecimento?%s", q.Encode())
}

func (p *Poller) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		p.log.Debugw("event dropped, no reader", "state", ev.State)
	}
}
