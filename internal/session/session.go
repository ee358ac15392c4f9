// Package session implements the refinement iteration state machine: one
// session wraps repeated generation rounds against a single content record,
// accumulating accepted updates, keeping an ordered history, and supporting
// revert to any earlier iteration.
//
// The machine has four states (Idle, Generating, Applied, Failed) and an
// explicit transition per operation; illegal transitions are rejected with
// sentinel errors rather than silently queued. At most one generation is in
// flight per session: a second refine while Generating is an error, not a
// buffer.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/contentforge/contentforge/internal/domain"
)

// State is the session's position in the refinement cycle.
type State int

const (
	// StateIdle: no round has run yet, or the session was reverted.
	StateIdle State = iota
	// StateGenerating: a round is in flight; refine/revert are rejected.
	StateGenerating
	// StateApplied: the last round succeeded and its update was merged.
	StateApplied
	// StateFailed: the last round failed; the record is unchanged but the
	// iteration slot was consumed.
	StateFailed
)

// String implements fmt.Stringer for logs and API payloads.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateApplied:
		return "applied"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session transition errors.
var (
	// ErrGenerationInFlight rejects a refine or revert while a round is
	// already running.
	ErrGenerationInFlight = errors.New("a generation is already in flight for this session")

	// ErrIterationLimit rejects a refine once maxIterations slots are used.
	ErrIterationLimit = errors.New("refinement iteration limit reached")

	// ErrBadIteration rejects a revert target outside [0, iteration].
	ErrBadIteration = errors.New("invalid iteration")

	// ErrNotGenerating guards completion calls issued out of order.
	ErrNotGenerating = errors.New("session has no generation in flight")
)

// HistoryEntry records one refinement round, successful or not. Entries are
// append-only while refining; only RevertTo discards them (everything after
// the revert target).
type HistoryEntry struct {
	Iteration   int                  `json:"iteration"`
	Instruction string               `json:"instruction"`
	Update      *domain.ParsedUpdate `json:"update,omitempty"`
	Succeeded   bool                 `json:"succeeded"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Session is safe for concurrent use; every operation takes the session
// lock. The zero value is not usable; construct through Manager.Start.
type Session struct {
	mu sync.Mutex

	id          string
	userID      string
	entryID     string
	contentType string
	mode        domain.GenerationMode
	selected    []string

	original      domain.ContentRecord
	current       domain.ContentRecord
	history       []HistoryEntry
	iteration     int
	maxIterations int
	state         State

	lastActive time.Time
	now        func() time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// EntryID returns the content entry this session edits, or "" for a
// detached session.
func (s *Session) EntryID() string { return s.entryID }

// BeginRefine claims the session for one refinement round. It rejects the
// claim when a round is already in flight or the iteration budget is spent;
// on success the session transitions to Generating and the returned context
// carries the next iteration number plus all prior instructions.
func (s *Session) BeginRefine() (domain.RefinementContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateGenerating {
		return domain.RefinementContext{}, ErrGenerationInFlight
	}
	if s.iteration >= s.maxIterations {
		return domain.RefinementContext{}, ErrIterationLimit
	}

	s.state = StateGenerating
	s.touch()
	prior := make([]string, 0, len(s.history))
	for _, h := range s.history {
		prior = append(prior, h.Instruction)
	}
	return domain.RefinementContext{
		Iteration:         s.iteration + 1,
		PriorInstructions: prior,
	}, nil
}

// CompleteRefine settles the in-flight round. A successful round merges the
// update into the current record; a failed round leaves the record alone.
// Either way one iteration slot is consumed and a history entry appended, so
// maxIterations bounds total attempts, not just successes.
func (s *Session) CompleteRefine(instruction string, update *domain.ParsedUpdate, succeeded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateGenerating {
		return ErrNotGenerating
	}

	s.iteration++
	s.history = append(s.history, HistoryEntry{
		Iteration:   s.iteration,
		Instruction: instruction,
		Update:      update,
		Succeeded:   succeeded,
		Timestamp:   s.now(),
	})
	if succeeded && update != nil {
		s.current = s.current.Merge(update.Updates)
		s.state = StateApplied
	} else {
		s.state = StateFailed
	}
	s.touch()
	return nil
}

// AbortRefine releases a claimed round without consuming an iteration slot
// or appending history. Used when the caller's context was cancelled before
// the round settled.
func (s *Session) AbortRefine() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateGenerating {
		s.state = StateIdle
		s.touch()
	}
}

// RevertTo rewinds the session to iteration n: the current record becomes
// the original merged with the updates of every succeeded round up to and
// including n, and later history entries are discarded so future rounds
// renumber cleanly. RevertTo(0) reproduces the original exactly.
func (s *Session) RevertTo(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateGenerating {
		return ErrGenerationInFlight
	}
	if n < 0 || n > s.iteration {
		return fmt.Errorf("%w: %d (have %d)", ErrBadIteration, n, s.iteration)
	}

	rec := s.original.Clone()
	kept := make([]HistoryEntry, 0, len(s.history))
	for _, h := range s.history {
		if h.Iteration > n {
			break
		}
		kept = append(kept, h)
		if h.Succeeded && h.Update != nil {
			rec = rec.Merge(h.Update.Updates)
		}
	}
	s.current = rec
	s.history = kept
	s.iteration = n
	s.state = StateIdle
	s.touch()
	return nil
}

// Accept returns the current record for the caller to persist. The session
// is left as-is; accepting does not consume state.
func (s *Session) Accept() domain.ContentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.current.Clone()
}

// Snapshot is a point-in-time view of the session for API responses.
type Snapshot struct {
	ID            string               `json:"id"`
	EntryID       string               `json:"entry_id,omitempty"`
	ContentType   string               `json:"content_type"`
	Mode          domain.GenerationMode `json:"mode"`
	State         string               `json:"state"`
	Iteration     int                  `json:"iteration"`
	MaxIterations int                  `json:"max_iterations"`
	Selected      []string             `json:"selected_fields"`
	Original      domain.ContentRecord `json:"original"`
	Current       domain.ContentRecord `json:"current"`
	History       []HistoryEntry       `json:"history"`
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := make([]HistoryEntry, len(s.history))
	copy(hist, s.history)
	sel := make([]string, len(s.selected))
	copy(sel, s.selected)
	return Snapshot{
		ID:            s.id,
		EntryID:       s.entryID,
		ContentType:   s.contentType,
		Mode:          s.mode,
		State:         s.state.String(),
		Iteration:     s.iteration,
		MaxIterations: s.maxIterations,
		Selected:      sel,
		Original:      s.original.Clone(),
		Current:       s.current.Clone(),
		History:       hist,
	}
}

// Request assembles the GenerationRequest for the next round from the
// session's fixed parameters plus the refinement context claimed by
// BeginRefine.
func (s *Session) Request(instruction string, refCtx domain.RefinementContext) domain.GenerationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := make([]string, len(s.selected))
	copy(sel, s.selected)
	return domain.GenerationRequest{
		ContentType:    s.contentType,
		Instruction:    instruction,
		SelectedFields: sel,
		Record:         s.current.Clone(),
		Mode:           s.mode,
		IsRefinement:   true,
		Refinement:     &refCtx,
	}
}

// touch records activity for TTL eviction; caller holds the lock.
func (s *Session) touch() { s.lastActive = s.now() }
