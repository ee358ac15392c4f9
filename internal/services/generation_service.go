// Package services – GenerationService
//
// This file implements GenerationService, the application-level component
// that owns one generation round end to end: it validates the request
// against the field catalog, reserves budget with the rate limiter, builds
// the prompt, calls the model with bounded retries, parses the reply into
// per-field updates, computes the proposed diff, and records the round in
// the generation log.
//
// Budget semantics: the reservation taken before the model call is settled
// with the actual token count on completion, released (refunded) when the
// caller's context was cancelled before the model produced anything, and
// kept (requests count, tokens stay at the estimate) when the model failed.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include user, content type, and mode attributes.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/diff"
	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/llm"
	"github.com/contentforge/contentforge/internal/parse"
	"github.com/contentforge/contentforge/internal/prompt"
	"github.com/contentforge/contentforge/internal/ratelimit"
	"github.com/contentforge/contentforge/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ModelSettings configures the completion calls issued per round.
type ModelSettings struct {
	ModelID     string
	MaxTokens   int
	Temperature float64
}

// GenerationService coordinates validation, budget, prompting, parsing, and
// persistence for generation rounds.
type GenerationService struct {
	DB      *gorm.DB
	Catalog *catalog.Catalog
	Builder *prompt.Builder
	Parser  *parse.Parser
	Limiter *ratelimit.Limiter
	Client  llm.Client
	Model   ModelSettings

	// Retry policy for transient model failures.
	MaxAttempts int
	RetryBase   time.Duration

	// sleep is a seam for tests; nil means a context-aware time.Sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// GenerateParams carries one generation request plus its accounting scope.
type GenerateParams struct {
	ContentType    string
	Instruction    string
	SelectedFields []string
	Record         domain.ContentRecord
	Mode           domain.GenerationMode

	// EntryID and SessionID scope the generation log row; either may be "".
	EntryID   string
	SessionID string

	IsRefinement bool
	Refinement   *domain.RefinementContext

	// Tier and Endpoint key the budget window.
	Tier     ratelimit.Tier
	Endpoint string
}

// Generate runs one round. It returns a typed error for predictable cases
// (validation, budget denial, model unavailability) and a degraded result
// when the model replied but no field updates could be extracted.
func (s *GenerationService) Generate(ctx context.Context, userID string, p GenerateParams) (*domain.GenerationResult, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("content.type", p.ContentType),
			attribute.String("generation.mode", string(p.Mode)),
			attribute.Bool("generation.refinement", p.IsRefinement),
		),
	)
	defer span.End()

	def, err := s.validate(&p)
	if err != nil {
		return nil, err
	}

	req := domain.GenerationRequest{
		ContentType:    p.ContentType,
		Instruction:    p.Instruction,
		SelectedFields: p.SelectedFields,
		Record:         p.Record,
		Mode:           p.Mode,
		IsRefinement:   p.IsRefinement,
		Refinement:     p.Refinement,
	}
	prm := s.Builder.Build(req, def)

	// Admission is atomic: the request slot and the token estimate are
	// reserved together, so two concurrent requests cannot both pass a
	// check and then both consume the last slot.
	est := s.estimateTokens(prm)
	res, dec := s.Limiter.CheckAndReserve(userID, p.Endpoint, p.Tier, est)
	if !dec.Allowed {
		return nil, &RateLimitError{ResetTime: dec.ResetTime}
	}

	reply, callErr := s.callModel(ctx, prm)
	if callErr != nil {
		if ctx.Err() != nil {
			// Nothing was consumed on the provider side that we can account
			// for; refund the reservation and surface the cancellation.
			s.Limiter.Release(res)
			return nil, ctx.Err()
		}
		s.Limiter.Record(res, 0, false)
		s.logRound(ctx, userID, p, "", nil, 0, false, false)
		return nil, errors.Join(ErrModelUnavailable, callErr)
	}

	fields := selectedDefs(def, p.SelectedFields)
	upd := s.Parser.Parse(reply.ReplyText, p.Mode, fields)
	degraded := upd.Empty()

	comparisons := diff.Diff(p.Record, upd, p.SelectedFields, def)

	id := uuid.NewString()
	s.logRound(ctx, userID, p, id, &upd, reply.TokensUsed, !degraded, degraded)
	s.Limiter.Record(res, reply.TokensUsed, !degraded)

	return &domain.GenerationResult{
		ID:          id,
		Explanation: upd.Explanation,
		Updates:     upd.Updates,
		Comparisons: comparisons,
		TokensUsed:  reply.TokensUsed,
		Degraded:    degraded,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// validate normalizes and checks the request, returning the content type
// definition on success.
func (s *GenerationService) validate(p *GenerateParams) (*catalog.ContentTypeDef, error) {
	p.Instruction = strings.TrimSpace(p.Instruction)
	if p.Instruction == "" {
		return nil, ErrEmptyInstruction
	}
	limits := s.Builder.Limits()
	if utf8.RuneCountInString(p.Instruction) > limits.MaxInstructionLen {
		return nil, ErrInstructionTooLong
	}
	if !p.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	switch p.Mode {
	case domain.ModeMultiField:
		if len(p.SelectedFields) == 0 || len(p.SelectedFields) > limits.MaxSelectedFields {
			return nil, ErrFieldSelection
		}
	case domain.ModeBlock, domain.ModeSingleField:
		if len(p.SelectedFields) != 1 {
			return nil, ErrFieldSelection
		}
	}

	def, err := s.Catalog.ContentType(p.ContentType)
	if err != nil {
		return nil, err
	}
	if err := def.ValidateSelection(p.SelectedFields); err != nil {
		return nil, err
	}
	if p.Record == nil {
		p.Record = domain.ContentRecord{}
	}
	return def, nil
}

// callModel issues the completion with bounded exponential backoff. Only
// transient failures are retried; context cancellation aborts immediately.
func (s *GenerationService) callModel(ctx context.Context, prm prompt.Prompt) (llm.Response, error) {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	base := s.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	req := llm.Request{
		SystemText:  prm.SystemText,
		UserText:    prm.UserText,
		ModelID:     s.Model.ModelID,
		MaxTokens:   s.Model.MaxTokens,
		Temperature: s.Model.Temperature,
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := s.wait(ctx, base<<(i-1)); err != nil {
				return llm.Response{}, err
			}
		}
		resp, err := s.Client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return llm.Response{}, err
		}
	}
	return llm.Response{}, lastErr
}

func (s *GenerationService) wait(ctx context.Context, d time.Duration) error {
	if s.sleep != nil {
		return s.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// estimateTokens approximates the prompt cost plus the configured reply
// ceiling. Four characters per token is a coarse but stable heuristic.
func (s *GenerationService) estimateTokens(p prompt.Prompt) int {
	chars := utf8.RuneCountInString(p.SystemText) + utf8.RuneCountInString(p.UserText)
	est := chars/4 + s.Model.MaxTokens
	if est < 1 {
		est = 1
	}
	return est
}

// logRound persists the generation log row. Logging failures are swallowed:
// the round already happened and the result is worth more than the audit row.
func (s *GenerationService) logRound(ctx context.Context, userID string, p GenerateParams, id string, upd *domain.ParsedUpdate, tokens int, succeeded, degraded bool) {
	if s.DB == nil {
		return
	}
	params := repo.GenerationLogParams{
		ID:          id,
		UserID:      userID,
		EntryID:     p.EntryID,
		SessionID:   p.SessionID,
		ContentType: p.ContentType,
		Mode:        string(p.Mode),
		Instruction: p.Instruction,
		TokensUsed:  tokens,
		Succeeded:   succeeded,
		Degraded:    degraded,
	}
	if upd != nil {
		params.Explanation = upd.Explanation
		params.Updates = upd.Updates
	}
	_, _ = repo.CreateGenerationLog(ctx, s.DB, params)
}

// selectedDefs resolves the selected names to their definitions, in
// selection order. Unknown names were rejected during validation.
func selectedDefs(def *catalog.ContentTypeDef, names []string) []domain.FieldDefinition {
	out := make([]domain.FieldDefinition, 0, len(names))
	for _, n := range names {
		if fd, ok := def.Field(n); ok {
			out = append(out, fd)
		}
	}
	return out
}
