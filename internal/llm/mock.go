// Package llm – scripted client for tests.
package llm

import (
	"context"
	"sync"
)

// Mock is a scripted Client. Replies are consumed in order; when the script
// runs out the last reply repeats. Errors can be interleaved by setting
// Err on a step.
type Mock struct {
	mu    sync.Mutex
	steps []MockStep
	calls []Request
}

// MockStep is one scripted reply or failure.
type MockStep struct {
	Reply  string
	Tokens int
	Err    error
}

// NewMock scripts a sequence of steps.
func NewMock(steps ...MockStep) *Mock {
	return &Mock{steps: steps}
}

// Complete pops the next scripted step, recording the request for later
// assertions. It honors ctx cancellation before consuming a step.
func (m *Mock) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if len(m.steps) == 0 {
		return Response{ReplyText: ""}, nil
	}
	step := m.steps[0]
	if len(m.steps) > 1 {
		m.steps = m.steps[1:]
	}
	if step.Err != nil {
		return Response{}, step.Err
	}
	return Response{ReplyText: step.Reply, TokensUsed: step.Tokens}, nil
}

// Calls returns a copy of every request seen so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Complete ran.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
