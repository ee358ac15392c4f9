// Package llm is the engine's boundary to the external language-model
// service. The engine owns what it sends (system and user text) and how it
// interprets the reply; everything else about the model is opaque behind the
// Client interface, so tests script replies and the production wiring uses
// the OpenAI-compatible client.
package llm

import "context"

// Request is the one call shape the engine sends to the model service.
type Request struct {
	SystemText  string
	UserText    string
	ModelID     string
	MaxTokens   int
	Temperature float64
}

// Response is the reply the engine interprets. TokensUsed is 0 when the
// service did not report usage.
type Response struct {
	ReplyText  string
	TokensUsed int
}

// Client performs one model call. Implementations must honor ctx
// cancellation and return promptly when it fires.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
