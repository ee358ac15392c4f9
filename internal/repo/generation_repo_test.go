package repo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/contentforge/contentforge/internal/domain"
)

func TestCreateGenerationLog_RoundTrip(t *testing.T) {
	db := newRepoDB(t, "genrepo_create", &domain.GenerationLog{})
	ctx := context.Background()

	g, err := CreateGenerationLog(ctx, db, GenerationLogParams{
		UserID:      "u1",
		EntryID:     "e1",
		SessionID:   "s1",
		ContentType: "landing_page",
		Mode:        "multiField",
		Instruction: "write a headline",
		Explanation: "Drafted a headline.",
		Updates:     map[string]string{"title": "Bold Moves"},
		TokensUsed:  128,
		Succeeded:   true,
	})
	if err != nil {
		t.Fatalf("CreateGenerationLog: %v", err)
	}
	if g.ID == "" {
		t.Fatal("missing generated ID")
	}

	got, err := GetGenerationLog(ctx, db, g.ID, "u1")
	if err != nil {
		t.Fatalf("GetGenerationLog: %v", err)
	}
	if got.Mode != "multiField" || got.TokensUsed != 128 || !got.Succeeded {
		t.Fatalf("unexpected row: %+v", got)
	}
	var updates map[string]string
	if err := json.Unmarshal([]byte(got.Updates), &updates); err != nil {
		t.Fatalf("updates not valid JSON: %v", err)
	}
	if updates["title"] != "Bold Moves" {
		t.Fatalf("updates = %v", updates)
	}
}

func TestCreateGenerationLog_HonorsCallerID(t *testing.T) {
	db := newRepoDB(t, "genrepo_id", &domain.GenerationLog{})
	ctx := context.Background()

	g, err := CreateGenerationLog(ctx, db, GenerationLogParams{
		ID:          "fixed-id",
		UserID:      "u1",
		ContentType: "landing_page",
		Mode:        "block",
		Instruction: "draft",
	})
	if err != nil {
		t.Fatalf("CreateGenerationLog: %v", err)
	}
	if g.ID != "fixed-id" {
		t.Fatalf("ID = %q, want fixed-id", g.ID)
	}
}

func TestGetGenerationLog_EnforcesOwnership(t *testing.T) {
	db := newRepoDB(t, "genrepo_owner", &domain.GenerationLog{})
	ctx := context.Background()

	g, err := CreateGenerationLog(ctx, db, GenerationLogParams{
		UserID: "u1", ContentType: "landing_page", Mode: "multiField", Instruction: "x",
	})
	if err != nil {
		t.Fatalf("CreateGenerationLog: %v", err)
	}
	if _, err := GetGenerationLog(ctx, db, g.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign get err = %v, want ErrNotFound", err)
	}
}

func TestListGenerationsPage_ScopedToEntry(t *testing.T) {
	db := newRepoDB(t, "genrepo_list", &domain.GenerationLog{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := CreateGenerationLog(ctx, db, GenerationLogParams{
			UserID: "u1", EntryID: "e1", ContentType: "landing_page", Mode: "multiField", Instruction: "x",
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := CreateGenerationLog(ctx, db, GenerationLogParams{
		UserID: "u1", EntryID: "e2", ContentType: "landing_page", Mode: "block", Instruction: "y",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	total, err := CountGenerations(ctx, db, "u1")
	if err != nil || total != 4 {
		t.Fatalf("CountGenerations = %d, %v; want 4", total, err)
	}

	items, err := ListGenerationsPage(ctx, db, "u1", "e1", 0, 10)
	if err != nil {
		t.Fatalf("ListGenerationsPage: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("scoped len = %d, want 3", len(items))
	}
}
