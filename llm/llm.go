// Package llm defines the narrow completion-service interface the pipeline
// generates and judges through, plus the typed decode-and-validate step
// applied to structured responses.
//
// Implementations:
//   - llm/anthropic: Anthropic Messages API
//   - llm/openai: any OpenAI-compatible endpoint (original deployment used
//     DeepSeek through this surface)
//   - llm/stub: scripted deterministic client for tests and replay
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Message is one turn of a completion request.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request is a model-agnostic completion request.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int64

	// WantJSON hints the backend to constrain output to a JSON object when
	// the API supports it. The schema itself travels in System via
	// WithSchema; WantJSON only toggles the response-format knob.
	WantJSON bool
}

// Client is the completion-service interface. Every failure mode (network
// error, malformed output, schema violation) is returned as an error and
// mapped to component-local defaults by callers.
type Client interface {
	Complete(ctx context.Context, req *Request) (string, error)
}

// ErrMalformedOutput marks completion responses that failed the typed
// decode-and-validate step.
var ErrMalformedOutput = errors.New("malformed completion output")

// Validator is implemented by response types that carry invariants beyond
// JSON well-formedness.
type Validator interface {
	Validate() error
}

// DecodeJSON parses a completion response into v, tolerating markdown code
// fences and leading prose around the JSON object. If v implements
// Validator, validation failure is reported as ErrMalformedOutput too.
func DecodeJSON(raw string, v interface{}) error {
	payload := extractJSON(raw)
	if payload == "" {
		return fmt.Errorf("%w: no JSON object found", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	}
	return nil
}

// extractJSON returns the outermost {...} or [...] span of raw.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if fenced := stripFence(s); fenced != "" {
		s = fenced
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// WithSchema appends a response-schema hint to a system prompt. The schema
// is advisory; enforcement happens in DecodeJSON.
func WithSchema(system, schema string) string {
	return system + "\n\nIMPORTANT: Output valid JSON only following this schema:\n" + schema
}
