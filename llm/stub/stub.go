// Package stub provides a deterministic scripted completion client for
// tests and replayed runs.
package stub

import (
	"context"
	"strings"
	"sync"

	"github.com/Vandarkun/datasets/llm"
)

// Rule maps a prompt substring to a canned reply. The first matching rule
// wins; matching considers both the system prompt and the last message.
type Rule struct {
	Match string
	Reply string
	Err   error
}

// Client replays scripted responses. Safe for concurrent use.
type Client struct {
	mu       sync.Mutex
	rules    []Rule
	fallback string
	calls    []string
}

// New creates a stub client with a fallback reply used when no rule matches.
func New(fallback string, rules ...Rule) *Client {
	return &Client{rules: rules, fallback: fallback}
}

// Complete returns the first scripted reply whose Match substring appears in
// the request's system prompt or last message.
func (c *Client) Complete(ctx context.Context, req *llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var last string
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	haystack := req.System + "\n" + last

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, haystack)

	for _, r := range c.rules {
		if r.Match != "" && strings.Contains(haystack, r.Match) {
			if r.Err != nil {
				return "", r.Err
			}
			return r.Reply, nil
		}
	}
	return c.fallback, nil
}

// Calls returns the prompts seen so far, in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}
