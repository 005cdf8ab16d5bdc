package ai

import (
	"context"
	"errors"

	"github.com/spigell/roomie-matcher/internal/profile"
)

// ErrMalformedResponse wraps every failure to interpret the provider output.
var ErrMalformedResponse = errors.New("malformed ai response")

// Assessment is the provider's view on a pair of roommates.
type Assessment struct {
	// Score is the adjusted compatibility in [0, 100].
	Score    float64
	Reasons  []string
	Concerns []string
	Raw      string
}

// Assessor asks a language model to re-evaluate a rule-based match.
type Assessor interface {
	Assess(ctx context.Context, current, candidate *profile.Profile, ruleScore float64) (*Assessment, error)
}
