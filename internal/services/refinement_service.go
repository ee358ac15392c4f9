// Package services – RefinementService
//
// This file implements RefinementService, which layers the refinement
// session state machine on top of GenerationService. A session pins the
// content type, mode, and field selection of its first round; each refine
// call replays the conversation so far (bounded prior instructions) against
// the current record and, on success, merges the applied subset of the
// proposed diff. Failed rounds consume an iteration slot without touching
// the record, so the iteration cap bounds model spend per session.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/diff"
	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/ratelimit"
	"github.com/contentforge/contentforge/internal/repo"
	"github.com/contentforge/contentforge/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RefinementService owns session lifecycle and the refine/revert/accept
// use-cases.
type RefinementService struct {
	DB        *gorm.DB
	Sessions  *session.Manager
	Generator *GenerationService

	// MaxIterations caps refinement rounds per session (attempts, not
	// successes).
	MaxIterations int
}

// StartParams opens a refinement session over a record.
type StartParams struct {
	EntryID        string
	ContentType    string
	SelectedFields []string
	Mode           domain.GenerationMode
	Record         domain.ContentRecord
}

// Start validates the selection and opens a session in the idle state. When
// EntryID is set the session is bound to that entry and Accept will write
// the result back to it.
func (s *RefinementService) Start(ctx context.Context, userID string, p StartParams) (session.Snapshot, error) {
	tr := otel.Tracer("services/RefinementService")
	_, span := tr.Start(ctx, "Start",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("content.type", p.ContentType),
		),
	)
	defer span.End()

	if !p.Mode.Valid() {
		return session.Snapshot{}, ErrInvalidMode
	}
	def, err := s.Generator.Catalog.ContentType(p.ContentType)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := def.ValidateSelection(p.SelectedFields); err != nil {
		return session.Snapshot{}, err
	}
	if p.EntryID != "" {
		if _, err := repo.GetEntry(ctx, s.DB, p.EntryID, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return session.Snapshot{}, ErrEntryNotFound
			}
			return session.Snapshot{}, err
		}
	}

	sess := s.Sessions.Start(userID, session.StartParams{
		EntryID:        p.EntryID,
		ContentType:    p.ContentType,
		SelectedFields: p.SelectedFields,
		Mode:           p.Mode,
		Record:         p.Record,
		MaxIterations:  s.MaxIterations,
	})
	return sess.Snapshot(), nil
}

// Get returns the current view of a session.
func (s *RefinementService) Get(userID, sessionID string) (session.Snapshot, error) {
	sess, err := s.Sessions.Get(sessionID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Refine runs one refinement round. The iteration slot is claimed before
// any model contact: once the cap is reached the call fails fast with
// session.ErrIterationLimit. Budget denials and validation errors release
// the claim; model failures and degraded parses keep it, recorded as a
// failed round in the session history.
func (s *RefinementService) Refine(ctx context.Context, userID, sessionID, instruction string, tier ratelimit.Tier) (*domain.GenerationResult, session.Snapshot, error) {
	tr := otel.Tracer("services/RefinementService")
	ctx, span := tr.Start(ctx, "Refine",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("session.id", sessionID),
		),
	)
	defer span.End()

	sess, err := s.Sessions.Get(sessionID, userID)
	if err != nil {
		return nil, session.Snapshot{}, err
	}

	refCtx, err := sess.BeginRefine()
	if err != nil {
		return nil, sess.Snapshot(), err
	}

	req := sess.Request(instruction, refCtx)
	result, err := s.Generator.Generate(ctx, userID, GenerateParams{
		ContentType:    req.ContentType,
		Instruction:    req.Instruction,
		SelectedFields: req.SelectedFields,
		Record:         req.Record,
		Mode:           req.Mode,
		EntryID:        sess.EntryID(),
		SessionID:      sessionID,
		IsRefinement:   true,
		Refinement:     req.Refinement,
		Tier:           tier,
		Endpoint:       "refine",
	})

	switch {
	case err == nil && !result.Degraded:
		applied := diff.ApplySelected(result.Comparisons)
		cerr := sess.CompleteRefine(instruction, &domain.ParsedUpdate{
			Explanation: result.Explanation,
			Updates:     applied,
		}, true)
		if cerr != nil {
			return result, sess.Snapshot(), cerr
		}
		return result, sess.Snapshot(), nil

	case err == nil:
		// Degraded reply: the round happened and tokens were spent, so the
		// slot is consumed, but the record stays untouched.
		_ = sess.CompleteRefine(instruction, &domain.ParsedUpdate{Explanation: result.Explanation}, false)
		return result, sess.Snapshot(), nil

	case errors.Is(err, ErrModelUnavailable):
		_ = sess.CompleteRefine(instruction, nil, false)
		return nil, sess.Snapshot(), err

	default:
		// Cancellation, budget denial, or validation: no model output was
		// consumed, give the slot back.
		sess.AbortRefine()
		return nil, sess.Snapshot(), err
	}
}

// Revert rewinds a session to iteration n. Revert(0) restores the original
// record exactly.
func (s *RefinementService) Revert(userID, sessionID string, n int) (session.Snapshot, error) {
	sess, err := s.Sessions.Get(sessionID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := sess.RevertTo(n); err != nil {
		return sess.Snapshot(), err
	}
	return sess.Snapshot(), nil
}

// Accept finalizes a session: the current record is returned, written back
// to the bound entry when there is one, and the session is discarded.
func (s *RefinementService) Accept(ctx context.Context, userID, sessionID string) (domain.ContentRecord, error) {
	tr := otel.Tracer("services/RefinementService")
	ctx, span := tr.Start(ctx, "Accept",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("session.id", sessionID),
		),
	)
	defer span.End()

	sess, err := s.Sessions.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	rec := sess.Accept()
	if entryID := sess.EntryID(); entryID != "" {
		if err := repo.UpdateEntryRecord(ctx, s.DB, entryID, userID, rec); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrEntryNotFound
			}
			return nil, err
		}
	}
	s.Sessions.Remove(sessionID)
	return rec, nil
}
