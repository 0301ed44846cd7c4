package dialogue

import (
	"context"
	"fmt"
	"log"

	"github.com/Vandarkun/datasets/core"
	"github.com/Vandarkun/datasets/llm"
	"github.com/Vandarkun/datasets/retrieval"
)

// OpeningMessage is the provider's scripted greeting, recorded as the
// first transcript turn before the loop starts. It does not count as a
// dialogue turn.
const OpeningMessage = "Hi! I'm your movie assistant. How are you feeling today?"

// maxRetrievalCallsPerTurn bounds retrieval inside a single generation
// turn. Each agent plans one query, runs one lookup, and generates; it
// never re-queries within the same turn.
const maxRetrievalCallsPerTurn = 1

// Config tunes one controller. Zero values are filled by DefaultConfig.
type Config struct {
	// MaxRejections is the rejection cap after which the seeker switches
	// to the accepting strategy.
	MaxRejections int

	// MaxTotalTurns is the hard turn limit. The session terminates as
	// soon as the counter reaches it, regardless of conversational state.
	MaxTotalTurns int

	// ReviewRetries bounds regeneration attempts per gated turn.
	ReviewRetries int

	// ProviderReview enables the provider-side review gate.
	ProviderReview bool

	// RelatedMemories enables retrieval over similar users' memories.
	RelatedMemories bool

	SeekerTemperature   float64
	ProviderTemperature float64
	JudgeTemperature    float64
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		MaxRejections:       2,
		MaxTotalTurns:       12,
		ReviewRetries:       3,
		ProviderReview:      true,
		RelatedMemories:     true,
		SeekerTemperature:   0.7,
		ProviderTemperature: 0.4,
		JudgeTemperature:    0.0,
	}
}

// Controller runs one dialogue between a seeker persona and the provider.
// Seeker and judge calls may use different clients (e.g. a stronger model
// for persona turns and a cheaper one for judging).
type Controller struct {
	seekerClient   llm.Client
	providerClient llm.Client
	judgeClient    llm.Client

	memories *retrieval.MemoryRetriever
	catalog  *retrieval.CatalogRetriever

	cfg Config
}

// NewController wires a controller. memories and catalog may be nil, in
// which case the corresponding retrieval degrades to an explicit
// "unavailable" evidence label rather than failing the session.
func NewController(seeker, provider, judge llm.Client, memories *retrieval.MemoryRetriever, catalog *retrieval.CatalogRetriever, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.MaxRejections <= 0 {
		cfg.MaxRejections = def.MaxRejections
	}
	if cfg.MaxTotalTurns <= 0 {
		cfg.MaxTotalTurns = def.MaxTotalTurns
	}
	if cfg.ReviewRetries <= 0 {
		cfg.ReviewRetries = def.ReviewRetries
	}
	if judge == nil {
		judge = provider
	}
	return &Controller{
		seekerClient:   seeker,
		providerClient: provider,
		judgeClient:    judge,
		memories:       memories,
		catalog:        catalog,
		cfg:            cfg,
	}
}

// Run executes the full dialogue for one profile and returns its record.
// A generation error is fatal to the session; judge and retrieval errors
// degrade per their documented defaults and never abort the run.
func (c *Controller) Run(ctx context.Context, profile *core.UserProfile) (*core.DialogueRecord, error) {
	if profile == nil {
		return nil, fmt.Errorf("dialogue: nil profile")
	}
	s := NewSession(profile)
	log.Printf("[DIALOGUE] session %s start user=%s", s.ID, profile.UserID)

	s.addTurn(core.RoleProvider, OpeningMessage)
	lastProvider := OpeningMessage

	for {
		s.TurnCount++
		strategy := strategyFor(s, c.cfg.MaxRejections)

		seekerMsg, err := c.seekerTurn(ctx, s, lastProvider, strategy)
		if err != nil {
			return nil, fmt.Errorf("seeker turn %d: %w", s.TurnCount, err)
		}
		s.addTurn(core.RoleSeeker, seekerMsg)

		intent := c.judgeIntent(ctx, seekerMsg)
		log.Printf("[DIALOGUE] session %s turn=%d strategy=%s intent=%s rejections=%d",
			s.ID, s.TurnCount, strategy, intent, s.RejectionCount)

		if intent == IntentAccept {
			s.Finished = true
			s.Termination = core.TerminationAccepted
			break
		}
		if intent == IntentReject {
			s.RejectionCount++
		}

		if s.TurnCount >= c.cfg.MaxTotalTurns {
			s.Termination = core.TerminationMaxTurns
			break
		}

		providerMsg, err := c.providerTurn(ctx, s, seekerMsg)
		if err != nil {
			return nil, fmt.Errorf("provider turn %d: %w", s.TurnCount, err)
		}
		s.addTurn(core.RoleProvider, providerMsg)
		lastProvider = providerMsg
	}

	log.Printf("[DIALOGUE] session %s done turns=%d rejections=%d termination=%s",
		s.ID, s.TurnCount, s.RejectionCount, s.Termination)
	return s.Record(), nil
}
