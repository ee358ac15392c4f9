package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge/internal/services"
)

func TestLeaveFeedback_Success(t *testing.T) {
	fb := &fakeFBSvc{}
	h := New(&fakeGenSvc{}, &fakeRefSvc{}, nil, fb, handlerCatalog(t), nil)
	r := newTestRouter(t, h)

	genID := uuid.NewString()
	w := doJSON(t, r, http.MethodPost, "/generations/"+genID+"/feedback", LeaveFeedbackRequest{Value: 1}, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if fb.calls != 1 || fb.lastID != genID || fb.lastV != 1 {
		t.Fatalf("service saw (%d calls, id %q, value %d)", fb.calls, fb.lastID, fb.lastV)
	}
}

func TestLeaveFeedback_InvalidPayload(t *testing.T) {
	fb := &fakeFBSvc{}
	h := New(&fakeGenSvc{}, &fakeRefSvc{}, nil, fb, handlerCatalog(t), nil)
	r := newTestRouter(t, h)

	// Value outside {-1, 1} is rejected by binding.
	w := doJSON(t, r, http.MethodPost, "/generations/"+uuid.NewString()+"/feedback", map[string]any{"value": 5}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("value=5: status=%d", w.Code)
	}

	// Non-UUID path params never reach the service.
	w = doJSON(t, r, http.MethodPost, "/generations/not-a-uuid/feedback", LeaveFeedbackRequest{Value: -1}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status=%d", w.Code)
	}
	if fb.calls != 0 {
		t.Fatalf("service called %d times", fb.calls)
	}
}

func TestLeaveFeedback_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown generation", services.ErrGenerationNotFound, http.StatusNotFound},
		{"invalid value", services.ErrInvalidFeedback, http.StatusBadRequest},
		{"duplicate", services.ErrDuplicateFeedback, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(&fakeGenSvc{}, &fakeRefSvc{}, nil, &fakeFBSvc{err: tc.err}, handlerCatalog(t), nil)
			r := newTestRouter(t, h)
			w := doJSON(t, r, http.MethodPost, "/generations/"+uuid.NewString()+"/feedback", LeaveFeedbackRequest{Value: 1}, nil)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d", w.Code, tc.wantCode)
			}
		})
	}
}
