package session

import (
	"errors"
	"testing"
	"time"

	"github.com/contentforge/contentforge/internal/domain"
)

func newTestManager() *Manager {
	return NewManager(time.Hour)
}

func startSession(t *testing.T, m *Manager, maxIter int) *Session {
	t.Helper()
	return m.Start("user-1", StartParams{
		ContentType:    "landing_page",
		SelectedFields: []string{"title", "body"},
		Mode:           domain.ModeMultiField,
		Record:         domain.ContentRecord{"title": "Old Title", "body": "Old body."},
		MaxIterations:  maxIter,
	})
}

func TestBeginRefine_ClaimsSlot(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 3)

	refCtx, err := s.BeginRefine()
	if err != nil {
		t.Fatalf("BeginRefine: %v", err)
	}
	if refCtx.Iteration != 1 {
		t.Fatalf("iteration = %d, want 1", refCtx.Iteration)
	}
	if len(refCtx.PriorInstructions) != 0 {
		t.Fatalf("prior instructions = %v, want none", refCtx.PriorInstructions)
	}

	if _, err := s.BeginRefine(); !errors.Is(err, ErrGenerationInFlight) {
		t.Fatalf("second BeginRefine err = %v, want ErrGenerationInFlight", err)
	}
}

func TestCompleteRefine_SuccessMergesUpdate(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 3)

	if _, err := s.BeginRefine(); err != nil {
		t.Fatalf("BeginRefine: %v", err)
	}
	upd := &domain.ParsedUpdate{
		Explanation: "Tightened the title.",
		Updates:     map[string]string{"title": "New Title"},
	}
	if err := s.CompleteRefine("make it punchier", upd, true); err != nil {
		t.Fatalf("CompleteRefine: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != "applied" {
		t.Fatalf("state = %q, want applied", snap.State)
	}
	if snap.Iteration != 1 {
		t.Fatalf("iteration = %d, want 1", snap.Iteration)
	}
	if snap.Current["title"] != "New Title" || snap.Current["body"] != "Old body." {
		t.Fatalf("current = %v", snap.Current)
	}
	if snap.Original["title"] != "Old Title" {
		t.Fatalf("original mutated: %v", snap.Original)
	}
	if len(snap.History) != 1 || !snap.History[0].Succeeded {
		t.Fatalf("history = %+v", snap.History)
	}
}

func TestCompleteRefine_FailureConsumesSlot(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 2)

	for i := 0; i < 2; i++ {
		if _, err := s.BeginRefine(); err != nil {
			t.Fatalf("BeginRefine(%d): %v", i, err)
		}
		if err := s.CompleteRefine("try again", nil, false); err != nil {
			t.Fatalf("CompleteRefine(%d): %v", i, err)
		}
	}

	snap := s.Snapshot()
	if snap.State != "failed" {
		t.Fatalf("state = %q, want failed", snap.State)
	}
	if snap.Current["title"] != "Old Title" {
		t.Fatalf("record changed after failures: %v", snap.Current)
	}

	// Iteration budget is spent despite zero successful rounds, so a third
	// attempt is rejected before any model contact.
	if _, err := s.BeginRefine(); !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("third BeginRefine err = %v, want ErrIterationLimit", err)
	}
}

func TestAbortRefine_ReleasesWithoutHistory(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 1)

	if _, err := s.BeginRefine(); err != nil {
		t.Fatalf("BeginRefine: %v", err)
	}
	s.AbortRefine()

	snap := s.Snapshot()
	if snap.State != "idle" {
		t.Fatalf("state = %q, want idle", snap.State)
	}
	if snap.Iteration != 0 || len(snap.History) != 0 {
		t.Fatalf("abort consumed a slot: iter=%d history=%d", snap.Iteration, len(snap.History))
	}

	// The slot is still available after the abort.
	if _, err := s.BeginRefine(); err != nil {
		t.Fatalf("BeginRefine after abort: %v", err)
	}
}

func refineOnce(t *testing.T, s *Session, instruction string, updates map[string]string, ok bool) {
	t.Helper()
	if _, err := s.BeginRefine(); err != nil {
		t.Fatalf("BeginRefine(%q): %v", instruction, err)
	}
	var upd *domain.ParsedUpdate
	if updates != nil {
		upd = &domain.ParsedUpdate{Explanation: "done", Updates: updates}
	}
	if err := s.CompleteRefine(instruction, upd, ok); err != nil {
		t.Fatalf("CompleteRefine(%q): %v", instruction, err)
	}
}

func TestRevertTo_ZeroRestoresOriginal(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 5)
	original := s.Snapshot().Original

	refineOnce(t, s, "first", map[string]string{"title": "T1"}, true)
	refineOnce(t, s, "second", map[string]string{"body": "B2"}, true)
	refineOnce(t, s, "third", nil, false)

	if err := s.RevertTo(0); err != nil {
		t.Fatalf("RevertTo(0): %v", err)
	}
	snap := s.Snapshot()
	if !snap.Current.Equal(original) {
		t.Fatalf("current = %v, want original %v", snap.Current, original)
	}
	if snap.Iteration != 0 || len(snap.History) != 0 {
		t.Fatalf("revert left iter=%d history=%d", snap.Iteration, len(snap.History))
	}
	if snap.State != "idle" {
		t.Fatalf("state = %q, want idle", snap.State)
	}
}

func TestRevertTo_IntermediateReplaysSucceededRounds(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 5)

	refineOnce(t, s, "first", map[string]string{"title": "T1"}, true)
	refineOnce(t, s, "second", nil, false)
	refineOnce(t, s, "third", map[string]string{"body": "B3"}, true)

	if err := s.RevertTo(2); err != nil {
		t.Fatalf("RevertTo(2): %v", err)
	}
	snap := s.Snapshot()
	if snap.Current["title"] != "T1" {
		t.Fatalf("title = %q, want T1", snap.Current["title"])
	}
	if snap.Current["body"] != "Old body." {
		t.Fatalf("body = %q, want original", snap.Current["body"])
	}
	if snap.Iteration != 2 || len(snap.History) != 2 {
		t.Fatalf("iter=%d history=%d", snap.Iteration, len(snap.History))
	}

	// Freed slots are usable again after revert.
	refCtx, err := s.BeginRefine()
	if err != nil {
		t.Fatalf("BeginRefine after revert: %v", err)
	}
	if refCtx.Iteration != 3 {
		t.Fatalf("next iteration = %d, want 3", refCtx.Iteration)
	}
}

func TestRevertTo_Bounds(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 5)
	refineOnce(t, s, "first", map[string]string{"title": "T1"}, true)

	if err := s.RevertTo(-1); !errors.Is(err, ErrBadIteration) {
		t.Fatalf("RevertTo(-1) err = %v", err)
	}
	if err := s.RevertTo(2); !errors.Is(err, ErrBadIteration) {
		t.Fatalf("RevertTo(2) err = %v", err)
	}

	if _, err := s.BeginRefine(); err != nil {
		t.Fatalf("BeginRefine: %v", err)
	}
	if err := s.RevertTo(0); !errors.Is(err, ErrGenerationInFlight) {
		t.Fatalf("RevertTo while generating err = %v", err)
	}
}

func TestAccept_ReturnsDetachedCopy(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 5)
	refineOnce(t, s, "first", map[string]string{"title": "T1"}, true)

	rec := s.Accept()
	rec["title"] = "tampered"
	if s.Snapshot().Current["title"] != "T1" {
		t.Fatal("Accept leaked internal record")
	}
}

func TestRequest_CarriesRefinementContext(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 5)
	refineOnce(t, s, "first", map[string]string{"title": "T1"}, true)

	refCtx, err := s.BeginRefine()
	if err != nil {
		t.Fatalf("BeginRefine: %v", err)
	}
	req := s.Request("now shorten it", refCtx)
	if !req.IsRefinement || req.Refinement == nil {
		t.Fatalf("request not marked as refinement: %+v", req)
	}
	if req.Refinement.Iteration != 2 {
		t.Fatalf("iteration = %d, want 2", req.Refinement.Iteration)
	}
	if len(req.Refinement.PriorInstructions) != 1 || req.Refinement.PriorInstructions[0] != "first" {
		t.Fatalf("prior = %v", req.Refinement.PriorInstructions)
	}
	if req.Record["title"] != "T1" {
		t.Fatalf("record = %v, want refined record", req.Record)
	}
}

func TestManager_OwnershipAndExpiry(t *testing.T) {
	m := newTestManager()
	base := time.Now()
	m.now = func() time.Time { return base }
	s := startSession(t, m, 1)

	if _, err := m.Get(s.ID(), "user-1"); err != nil {
		t.Fatalf("Get own session: %v", err)
	}
	if _, err := m.Get(s.ID(), "someone-else"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("foreign Get err = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Get("missing", "user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing Get err = %v", err)
	}

	base = base.Add(2 * time.Hour)
	if _, err := m.Get(s.ID(), "user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired Get err = %v, want ErrSessionNotFound", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expired session not evicted, len=%d", m.Len())
	}
}

func TestManager_Remove(t *testing.T) {
	m := newTestManager()
	s := startSession(t, m, 1)
	m.Remove(s.ID())
	if _, err := m.Get(s.ID(), "user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get after Remove err = %v", err)
	}
}
