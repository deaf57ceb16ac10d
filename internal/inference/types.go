// Package inference coalesces explanation requests into rate-limited calls
// against a text-generation service.
package inference

import "context"

// Item is one request for an explanation. ID is the caller's correlation id.
type Item struct {
	ID      string
	GameID  string
	Kind    string
	Payload string
}

// Result answers exactly one Item. Text is empty when no explanation was produced.
type Result struct {
	ID   string
	Text string
	Err  error
}

// Explanation is one element of a parsed generator response.
type Explanation struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Completion is the raw output of one generator call.
type Completion struct {
	Text       string
	TokensUsed int
}

// Generator produces text for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (Completion, error)
}

// NoopGenerator answers every call with an empty array, so no explanations are attached.
type NoopGenerator struct{}

func (NoopGenerator) Generate(ctx context.Context, _, _ string) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	return Completion{Text: "[]"}, nil
}
