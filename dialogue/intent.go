package dialogue

import (
	"context"
	"log"
	"strings"

	"github.com/Vandarkun/datasets/llm"
)

// Intent is the judged conversational intent of a seeker message.
type Intent string

const (
	IntentAccept  Intent = "ACCEPT"
	IntentReject  Intent = "REJECT"
	IntentInquiry Intent = "INQUIRY"
)

const intentJudgeSystem = `You classify the viewer's last message in a movie recommendation conversation.

ACCEPT: the viewer clearly agrees to watch the recommended movie.
REJECT: the viewer turns the recommendation down.
INQUIRY: anything else (questions, small talk, hesitation, asking for details).

Answer with exactly one word: ACCEPT, REJECT, or INQUIRY.`

// judgeIntent classifies a seeker message. Any failure, including an
// unparseable verdict, defaults to IntentInquiry: the conversation keeps
// going rather than accepting or rejecting on a guess.
func (c *Controller) judgeIntent(ctx context.Context, seekerMsg string) Intent {
	raw, err := c.judgeClient.Complete(ctx, &llm.Request{
		System:      intentJudgeSystem,
		Messages:    []llm.Message{{Role: "user", Content: seekerMsg}},
		Temperature: c.cfg.JudgeTemperature,
	})
	if err != nil {
		log.Printf("[DIALOGUE] intent judge failed, defaulting to INQUIRY: %v", err)
		return IntentInquiry
	}
	return parseIntent(raw)
}

// parseIntent scans the verdict for a label. ACCEPT is matched first so a
// wordy verdict like "the viewer accepts" resolves the way the judge
// meant it.
func parseIntent(raw string) Intent {
	s := strings.ToUpper(raw)
	switch {
	case strings.Contains(s, string(IntentAccept)):
		return IntentAccept
	case strings.Contains(s, string(IntentReject)):
		return IntentReject
	default:
		return IntentInquiry
	}
}
