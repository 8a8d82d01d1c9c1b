package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-mc-launcher/accounts"
)

// State is the position of a flow session in its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateAwaitingUserCode
	StateAwaitingUserConfirmation
	StatePolling
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingUserCode:
		return "awaiting_user_code"
	case StateAwaitingUserConfirmation:
		return "awaiting_user_confirmation"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyStarted = errors.New("flow already started")
	ErrCancelled      = errors.New("authentication cancelled")
)

// AccountCommitter is the slice of the account store the flow needs: a
// placeholder before the session starts, a single commit on success.
type AccountCommitter interface {
	EnsurePlaceholder(username string) (created bool, err error)
	CommitAuthentication(username string, res accounts.AuthResult) error
}

var _ AccountCommitter = (*accounts.Store)(nil)

// Flow drives one device-code authentication session for one username on a
// background worker, emitting events to the presenter over a channel. A Flow
// is single-use: a retry after Failed or Cancelled is a new Flow (and a new
// device code).
type Flow struct {
	username  string
	store     AccountCommitter
	transport Transport

	pollInterval time.Duration
	maxDuration  time.Duration

	events  chan Event
	confirm chan struct{}
	done    chan struct{}

	state     atomic.Int32
	cancelled atomic.Bool

	mu       sync.Mutex
	cancelFn context.CancelFunc
}

// Option modifies a Flow during construction.
type Option func(*Flow)

// WithPollInterval overrides the wait between poll attempts in the
// direct-HTTP variant. Default 2 seconds.
func WithPollInterval(d time.Duration) Option {
	return func(f *Flow) {
		f.pollInterval = d
	}
}

// WithMaxDuration bounds how long a session may stay open before failing,
// matching the device code's typical server-side expiry. Default 15 minutes.
func WithMaxDuration(d time.Duration) Option {
	return func(f *Flow) {
		f.maxDuration = d
	}
}

// New creates a flow for username. The transport decides whether the code and
// completion signal come from direct HTTP calls or a backend subprocess.
func New(username string, store AccountCommitter, transport Transport, options ...Option) *Flow {
	f := &Flow{
		username:     username,
		store:        store,
		transport:    transport,
		pollInterval: 2 * time.Second,
		maxDuration:  15 * time.Minute,
		events:       make(chan Event, 16),
		confirm:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Events returns the channel the presenter drains for flow notifications.
func (f *Flow) Events() <-chan Event {
	return f.events
}

// State returns the flow's current lifecycle state.
func (f *Flow) State() State {
	return State(f.state.Load())
}

// Start ensures the account placeholder exists and launches the worker.
// A failure to persist the placeholder aborts the session before any network
// activity: there would be nowhere to store the result.
func (f *Flow) Start(ctx context.Context) error {
	if !f.state.CompareAndSwap(int32(StateIdle), int32(StateAwaitingUserCode)) {
		return ErrAlreadyStarted
	}

	if _, err := f.store.EnsurePlaceholder(f.username); err != nil {
		f.state.Store(int32(StateFailed))
		close(f.done)
		return fmt.Errorf("ensure account placeholder: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, f.maxDuration)
	f.mu.Lock()
	f.cancelFn = cancel
	f.mu.Unlock()

	log.Debug().Str("username", f.username).Msg("authentication flow started")
	go f.run(runCtx)
	return nil
}

// ConfirmAndContinue signals that the user says they have finished
// authenticating in the browser. Only meaningful for transports that require
// confirmation; safe to call at any time.
func (f *Flow) ConfirmAndContinue() {
	select {
	case f.confirm <- struct{}{}:
	default:
	}
}

// Cancel requests a cooperative stop. The worker halts at its next checkpoint;
// in-flight requests complete but their results are discarded, and the account
// record is left exactly as it was before the session began.
func (f *Flow) Cancel() {
	f.cancelled.Store(true)
	f.mu.Lock()
	if f.cancelFn != nil {
		f.cancelFn()
	}
	f.mu.Unlock()
}

// Wait blocks until the worker has fully stopped. A new flow for the same
// username must not start before Wait returns.
func (f *Flow) Wait() {
	<-f.done
}

func (f *Flow) run(ctx context.Context) {
	defer close(f.done)
	defer func() {
		f.mu.Lock()
		cancel := f.cancelFn
		f.mu.Unlock()
		cancel()
	}()
	defer func() {
		if err := f.transport.Close(); err != nil {
			log.Warn().Err(err).Msg("transport close failed")
		}
	}()

	prompt, err := f.transport.RequestCode(ctx)
	if err != nil {
		f.terminate(err)
		return
	}
	if f.cancelled.Load() {
		f.terminate(ErrCancelled)
		return
	}

	f.emit(Event{Kind: EventCodeReady, VerificationURI: prompt.VerificationURI, UserCode: prompt.UserCode})

	if f.transport.RequiresConfirmation() {
		f.setState(StateAwaitingUserConfirmation)
		if !f.awaitConfirm(ctx) {
			return
		}
	}

	f.setState(StatePolling)
	for {
		if f.cancelled.Load() {
			f.terminate(ErrCancelled)
			return
		}

		res, err := f.transport.PollOnce(ctx)
		if err == nil {
			// A result that raced with cancellation is discarded, never
			// committed.
			if f.cancelled.Load() {
				f.terminate(ErrCancelled)
				return
			}
			if err := f.store.CommitAuthentication(f.username, accounts.AuthResult{
				AccessToken:  res.AccessToken,
				RefreshToken: res.RefreshToken,
				ProfileID:    res.ProfileID,
				ProfileName:  res.ProfileName,
			}); err != nil {
				f.terminate(fmt.Errorf("commit authentication result: %w", err))
				return
			}
			f.setState(StateSucceeded)
			f.emit(Event{Kind: EventCompleted, Success: true})
			return
		}

		var pending *PendingError
		if errors.As(err, &pending) {
			if pending.Diagnostic != "" {
				f.emit(Event{Kind: EventPendingRetry, Diagnostic: pending.Diagnostic})
			}
			if f.transport.RequiresConfirmation() {
				if !f.awaitConfirm(ctx) {
					return
				}
			} else if !f.sleep(ctx) {
				return
			}
			continue
		}

		f.terminate(err)
		return
	}
}

// awaitConfirm blocks until the presenter confirms, the session is cancelled
// or the session deadline passes. Returns false when the flow has terminated.
func (f *Flow) awaitConfirm(ctx context.Context) bool {
	select {
	case <-f.confirm:
		if f.cancelled.Load() {
			f.terminate(ErrCancelled)
			return false
		}
		return true
	case <-ctx.Done():
		f.terminateFromContext(ctx)
		return false
	}
}

// sleep waits one poll interval, staying responsive to cancellation.
func (f *Flow) sleep(ctx context.Context) bool {
	timer := time.NewTimer(f.pollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		f.terminateFromContext(ctx)
		return false
	}
}

func (f *Flow) terminateFromContext(ctx context.Context) {
	if f.cancelled.Load() {
		f.terminate(ErrCancelled)
		return
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		f.terminate(fmt.Errorf("authentication timed out after %s", f.maxDuration))
		return
	}
	f.terminate(ctx.Err())
}

// terminate moves the flow to its terminal state and fires the single
// Completed event.
func (f *Flow) terminate(err error) {
	if errors.Is(err, ErrCancelled) {
		f.setState(StateCancelled)
		log.Debug().Str("username", f.username).Msg("authentication cancelled")
	} else {
		// A context error after Cancel() is still a cancellation: the
		// in-flight request was torn down by the cancel itself.
		if f.cancelled.Load() && errors.Is(err, context.Canceled) {
			f.setState(StateCancelled)
			err = ErrCancelled
			log.Debug().Str("username", f.username).Msg("authentication cancelled")
		} else {
			f.setState(StateFailed)
			log.Warn().Err(err).Str("username", f.username).Msg("authentication failed")
		}
	}
	f.emit(Event{Kind: EventCompleted, Success: false, Err: err})
}

func (f *Flow) setState(s State) {
	f.state.Store(int32(s))
	log.Debug().Str("username", f.username).Stringer("state", s).Msg("flow state changed")
}

// emit delivers an event without ever blocking the worker. A presenter that
// has been torn down simply stops draining; its events are dropped.
func (f *Flow) emit(ev Event) {
	select {
	case f.events <- ev:
	default:
		log.Debug().Stringer("kind", ev.Kind).Msg("event dropped, no receiver")
	}
}
