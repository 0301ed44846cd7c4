// Package dialogue drives simulated recommendation conversations between a
// seeker persona (grounded in a user profile) and a provider assistant,
// with bounded review-retry gates, intent judging, and hard termination.
package dialogue

import (
	"github.com/google/uuid"

	"github.com/Vandarkun/datasets/core"
)

// Session holds the mutable state of one dialogue run. Counters are
// monotonic: RejectionCount only increases, TurnCount strictly increases
// per loop iteration, and Finished never reverts to false.
type Session struct {
	ID      string
	Profile *core.UserProfile

	Turns          []core.Turn
	RejectionCount int
	TurnCount      int
	Finished       bool
	Termination    string
}

// NewSession creates a session for one profile. The profile is borrowed
// read-only for the session's lifetime.
func NewSession(profile *core.UserProfile) *Session {
	return &Session{
		ID:      uuid.New().String(),
		Profile: profile,
	}
}

func (s *Session) addTurn(role, content string) {
	s.Turns = append(s.Turns, core.Turn{Role: role, Content: content})
}

// recentTurns returns up to n trailing turns for coherence checking.
func (s *Session) recentTurns(n int) []core.Turn {
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// Record flattens the session into its output artifact.
func (s *Session) Record() *core.DialogueRecord {
	return &core.DialogueRecord{
		UserID:              s.Profile.UserID,
		MetaStats:           s.Profile.MetaStats,
		FinalRejectionCount: s.RejectionCount,
		Turns:               s.TurnCount,
		Finished:            s.Finished,
		Termination:         s.Termination,
		Dialogue:            s.Turns,
	}
}

// Strategy is the seeker's attitude for one turn. It is selected from
// session state and passed into generation as an explicit instruction,
// never inferred implicitly.
type Strategy int

const (
	// StrategyCasual opens the conversation before any exchange.
	StrategyCasual Strategy = iota

	// StrategyCritical pushes back while rejections remain below the cap.
	StrategyCritical

	// StrategyAccepting takes over once the rejection cap is reached.
	StrategyAccepting
)

func (s Strategy) String() string {
	switch s {
	case StrategyCasual:
		return "casual"
	case StrategyCritical:
		return "critical"
	case StrategyAccepting:
		return "accepting"
	default:
		return "unknown"
	}
}

// strategyFor selects the seeker strategy from session state. The
// accepting check precedes the critical one so a capped session can never
// fall back to rejection.
func strategyFor(s *Session, maxRejections int) Strategy {
	if s.TurnCount <= 1 {
		return StrategyCasual
	}
	if s.RejectionCount >= maxRejections {
		return StrategyAccepting
	}
	return StrategyCritical
}
