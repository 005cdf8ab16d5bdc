// Package matching ranks a pool of candidate roommates for one user.
package matching

import (
	"errors"
	"time"

	"github.com/spigell/roomie-matcher/internal/compat"
	"github.com/spigell/roomie-matcher/internal/profile"
)

// AIState records how far the AI adjustment of a single match got.
type AIState string

const (
	RuleBasedOnly AIState = "rule_based_only"
	AIRequested   AIState = "ai_requested"
	AIApplied     AIState = "ai_applied"
	AIFallback    AIState = "ai_fallback"
)

const (
	DefaultMaxResults  = 10
	DefaultMinScore    = 60.0
	DefaultConcurrency = 4
	DefaultAITimeout   = 15 * time.Second

	// maxAIReasons bounds the AI reasons appended to a match.
	maxAIReasons = 5
)

// ErrNoCurrentUser is returned when ranking is requested without a user to rank for.
var ErrNoCurrentUser = errors.New("current user is required")

// fallbackReasons are appended when an AI adjustment was requested but failed.
var fallbackReasons = []string{
	"AI detected complementary personality traits",
	"Communication styles seem well-matched",
	"Shared values around community and respect",
}

// FallbackReasons returns a copy of the reasons used when the AI step fails.
func FallbackReasons() []string {
	return append([]string(nil), fallbackReasons...)
}

// Criteria describes a single ranking request.
type Criteria struct {
	CurrentUser *profile.Profile
	Candidates  []*profile.Profile
	// MaxResults caps the result list. Non-positive values mean DefaultMaxResults.
	MaxResults int
	// MinScore is inclusive.
	MinScore float64
	UseAI    bool
}

// DefaultCriteria returns criteria with the default limits.
func DefaultCriteria(current *profile.Profile, candidates []*profile.Profile) Criteria {
	return Criteria{
		CurrentUser: current,
		Candidates:  candidates,
		MaxResults:  DefaultMaxResults,
		MinScore:    DefaultMinScore,
	}
}

// MatchResult is one ranked candidate.
type MatchResult struct {
	Profile  *profile.Profile `json:"profile"`
	Score    float64          `json:"score"`
	Reasons  []string         `json:"reasons"`
	Scores   compat.Scores    `json:"compatibility_scores"`
	AIState  AIState          `json:"ai_state"`
	Concerns []string         `json:"concerns,omitempty"`
}
