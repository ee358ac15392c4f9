package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contentforge/contentforge/internal/domain"
)

func TestIdempotency_CreateAndGet(t *testing.T) {
	db := newRepoDB(t, "idemrepo_ok", &domain.Idempotency{})
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "u1", "session-1", "key-1", "gen-1", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.GenerationID != "gen-1" || rec.Status != 200 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "session-1", "key-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.GenerationID != "gen-1" {
		t.Fatalf("GenerationID = %q", got.GenerationID)
	}
}

func TestIdempotency_ExpiredNotReturned(t *testing.T) {
	db := newRepoDB(t, "idemrepo_exp", &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "session-1", "key-1", "gen-1", 200, time.Millisecond); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", "session-1", "key-1", time.Now().UTC().Add(time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired get err = %v, want ErrNotFound", err)
	}
}

func TestIdempotency_EmptyScopeShortCircuits(t *testing.T) {
	db := newRepoDB(t, "idemrepo_scope", &domain.Idempotency{})
	if _, err := GetIdempotency(context.Background(), db, "u1", "  ", "key-1", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank scope err = %v, want ErrNotFound", err)
	}
}

func TestIdempotency_DuplicateTuple(t *testing.T) {
	db := newRepoDB(t, "idemrepo_dup", &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "session-1", "key-1", "gen-1", 200, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "u1", "session-1", "key-1", "gen-2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second create err = %v, want ErrDuplicate", err)
	}
	// Different scope under the same key is a distinct tuple.
	if _, err := CreateIdempotency(ctx, db, "u1", "session-2", "key-1", "gen-3", 200, time.Hour); err != nil {
		t.Fatalf("distinct scope create: %v", err)
	}
}
