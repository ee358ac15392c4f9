package services

import (
	"context"
	"errors"
	"testing"

	"github.com/contentforge/contentforge/internal/repo"
)

func seedGeneration(t *testing.T, svc *FeedbackService, id, userID string) {
	t.Helper()
	if _, err := repo.CreateGenerationLog(context.Background(), svc.DB, repo.GenerationLogParams{
		ID: id, UserID: userID, ContentType: "landing_page", Mode: "multiField", Instruction: "x",
	}); err != nil {
		t.Fatalf("seed generation: %v", err)
	}
}

func TestFeedbackLeave_InvalidValue(t *testing.T) {
	svc := &FeedbackService{DB: newServiceDB(t, "fbsvc_invalid")}
	for _, v := range []int{0, 2, -2, 5} {
		if err := svc.Leave(context.Background(), "u1", "g1", v); !errors.Is(err, ErrInvalidFeedback) {
			t.Fatalf("value %d err = %v, want ErrInvalidFeedback", v, err)
		}
	}
}

func TestFeedbackLeave_UnknownGeneration(t *testing.T) {
	svc := &FeedbackService{DB: newServiceDB(t, "fbsvc_unknown")}
	if err := svc.Leave(context.Background(), "u1", "missing", 1); !errors.Is(err, ErrGenerationNotFound) {
		t.Fatalf("err = %v, want ErrGenerationNotFound", err)
	}
}

func TestFeedbackLeave_ForeignGenerationHidden(t *testing.T) {
	svc := &FeedbackService{DB: newServiceDB(t, "fbsvc_foreign")}
	seedGeneration(t, svc, "g1", "owner")

	if err := svc.Leave(context.Background(), "intruder", "g1", 1); !errors.Is(err, ErrGenerationNotFound) {
		t.Fatalf("err = %v, want ErrGenerationNotFound", err)
	}
}

func TestFeedbackLeave_SuccessThenDuplicate(t *testing.T) {
	svc := &FeedbackService{DB: newServiceDB(t, "fbsvc_dup")}
	seedGeneration(t, svc, "g1", "u1")

	if err := svc.Leave(context.Background(), "u1", "g1", -1); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := svc.Leave(context.Background(), "u1", "g1", 1); !errors.Is(err, ErrDuplicateFeedback) {
		t.Fatalf("second Leave err = %v, want ErrDuplicateFeedback", err)
	}
}
