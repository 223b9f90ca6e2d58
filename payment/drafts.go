/*
drafts.go - Payment draft state machine and session registry

PURPOSE:
  The form layer re-renders and needs to reopen the draft it was editing.
  Drafts are kept here, keyed by an opaque id, while the engine itself
  stays stateless.

STATE MACHINE:
  DRAFT          --range_chosen-->      RANGE_CHECKED
  RANGE_CHECKED  --violation-->         DRAFT           (errors kept)
  RANGE_CHECKED  --fees_complete-->     READY
  READY          --persist_succeeded--> COMMITTED       (terminal, draft cleared)
  READY          --persist_failed-->    READY           (errors kept, retryable)
  DRAFT|RANGE_CHECKED|READY --cancel--> CANCEL_CONFIRM  (when edited)
                                        CLOSED          (when untouched)
  CANCEL_CONFIRM --confirm-->           CLOSED
  CANCEL_CONFIRM --back-->              prior state

COPY-ON-EDIT:
  Get returns a copy. Put replaces the stored draft with a copy of the
  caller's value; two callers never share a Draft.

SEE ALSO:
  - engine.go: Validate / Check / Persist used by CheckDraft and CommitDraft
*/
package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/fee-engine/period"
)

// =============================================================================
// STATES AND EVENTS
// =============================================================================

type DraftState string

const (
	StateDraft         DraftState = "draft"
	StateRangeChecked  DraftState = "range_checked"
	StateReady         DraftState = "ready"
	StateCommitted     DraftState = "committed"
	StateCancelConfirm DraftState = "cancel_confirm"
	StateClosed        DraftState = "closed"
)

// Terminal reports whether no further events apply.
func (s DraftState) Terminal() bool {
	return s == StateCommitted || s == StateClosed
}

type DraftEvent string

const (
	EventRangeChosen      DraftEvent = "range_chosen"
	EventViolation        DraftEvent = "violation"
	EventFeesComplete     DraftEvent = "fees_complete"
	EventPersistSucceeded DraftEvent = "persist_succeeded"
	EventPersistFailed    DraftEvent = "persist_failed"
	EventCancel           DraftEvent = "cancel"
	EventConfirm          DraftEvent = "confirm"
	EventBack             DraftEvent = "back"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is one open draft.
type Session struct {
	ID        string
	Draft     Draft
	State     DraftState
	Dirty     bool   // edited since opened
	Errors    []Code // codes from the last failed check or persist
	PaymentID PaymentID
	UpdatedAt time.Time

	prior DraftState
}

// Transition applies ev to the session state.
func (s *Session) Transition(ev DraftEvent) error {
	next, err := s.next(ev)
	if err != nil {
		return err
	}
	if next == StateCancelConfirm {
		s.prior = s.State
	}
	if next == StateCommitted {
		s.Draft = Draft{}
		s.Errors = nil
	}
	s.State = next
	return nil
}

func (s *Session) next(ev DraftEvent) (DraftState, error) {
	switch s.State {
	case StateDraft:
		switch ev {
		case EventRangeChosen:
			return StateRangeChecked, nil
		case EventCancel:
			return s.cancelTarget(), nil
		}
	case StateRangeChecked:
		switch ev {
		case EventViolation:
			return StateDraft, nil
		case EventFeesComplete:
			return StateReady, nil
		case EventCancel:
			return s.cancelTarget(), nil
		}
	case StateReady:
		switch ev {
		case EventPersistSucceeded:
			return StateCommitted, nil
		case EventPersistFailed:
			return StateReady, nil
		case EventCancel:
			return s.cancelTarget(), nil
		}
	case StateCancelConfirm:
		switch ev {
		case EventConfirm:
			return StateClosed, nil
		case EventBack:
			return s.prior, nil
		}
	}
	return s.State, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, s.State)
}

func (s *Session) cancelTarget() DraftState {
	if s.Dirty {
		return StateCancelConfirm
	}
	return StateClosed
}

// =============================================================================
// REGISTRY
// =============================================================================

// DefaultDraftTTL is how long an untouched session survives.
const DefaultDraftTTL = 2 * time.Hour

// Drafts is a session-scoped registry of open drafts.
type Drafts struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    period.Clock
	sessions map[string]*Session
}

// NewDrafts builds a registry whose idle sessions expire after ttl.
func NewDrafts(clock period.Clock, ttl time.Duration) *Drafts {
	if clock == nil {
		clock = period.SystemClock{}
	}
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &Drafts{ttl: ttl, clock: clock, sessions: make(map[string]*Session)}
}

// Open registers d and returns the new session.
func (r *Drafts) Open(d Draft) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	s := &Session{
		ID:        uuid.NewString(),
		Draft:     d,
		State:     StateDraft,
		UpdatedAt: r.clock.Now(),
	}
	r.sessions[s.ID] = s
	return *s
}

// Get returns a copy of the session.
func (r *Drafts) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrDraftNotFound
	}
	return *s, nil
}

// Put replaces the session's draft. Editing sends a checked or ready
// session back to DRAFT; terminal and cancel-pending sessions reject edits.
func (r *Drafts) Put(id string, d Draft) (Session, error) {
	return r.update(id, func(s *Session) error {
		switch s.State {
		case StateCommitted, StateClosed, StateCancelConfirm:
			return fmt.Errorf("%w: edit on %s", ErrIllegalTransition, s.State)
		}
		s.Draft = d
		s.Dirty = true
		s.State = StateDraft
		s.Errors = nil
		return nil
	})
}

// Apply applies ev to the session.
func (r *Drafts) Apply(id string, ev DraftEvent) (Session, error) {
	return r.update(id, func(s *Session) error { return s.Transition(ev) })
}

// Discard drops the session. Unknown ids are ignored.
func (r *Drafts) Discard(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len is the number of live sessions.
func (r *Drafts) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.sessions)
}

func (r *Drafts) update(id string, fn func(*Session) error) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrDraftNotFound
	}
	work := *s
	if err := fn(&work); err != nil {
		return *s, err
	}
	work.UpdatedAt = r.clock.Now()
	*s = work
	return work, nil
}

func (r *Drafts) sweepLocked() {
	cutoff := r.clock.Now().Add(-r.ttl)
	for id, s := range r.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}

// =============================================================================
// ENGINE INTEGRATION
// =============================================================================

// CheckDraft runs the range rules and the field preconditions on a session,
// driving it to DRAFT (range violation), RANGE_CHECKED (fields incomplete)
// or READY.
func (e *Engine) CheckDraft(drafts *Drafts, id string) (Session, error) {
	return drafts.update(id, func(s *Session) error {
		if s.State == StateRangeChecked || s.State == StateReady {
			s.State = StateDraft
		}
		if err := s.Transition(EventRangeChosen); err != nil {
			return err
		}

		now := e.clock.Now()
		if codes := validateRange(s.Draft, now); len(codes) > 0 {
			s.Errors = codes
			return s.Transition(EventViolation)
		}
		if codes, _ := check(s.Draft, now); len(codes) > 0 {
			s.Errors = codes
			return nil
		}
		s.Errors = nil
		return s.Transition(EventFeesComplete)
	})
}

// CommitDraft persists a READY session. On success the session is
// COMMITTED and records the payment id; on failure it stays READY with the
// failure codes.
func (e *Engine) CommitDraft(ctx context.Context, drafts *Drafts, id string) (Session, error) {
	s, err := drafts.Get(id)
	if err != nil {
		return Session{}, err
	}
	if s.State != StateReady {
		return s, fmt.Errorf("%w: commit on %s", ErrIllegalTransition, s.State)
	}

	paymentID, persistErr := e.Persist(ctx, s.Draft.ClientID, s.Draft)
	s, err = drafts.update(id, func(s *Session) error {
		if persistErr != nil {
			s.Errors = Codes(persistErr)
			return s.Transition(EventPersistFailed)
		}
		s.PaymentID = paymentID
		return s.Transition(EventPersistSucceeded)
	})
	if err != nil {
		return s, err
	}
	return s, persistErr
}
