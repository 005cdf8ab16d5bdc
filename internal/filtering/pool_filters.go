package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/profile"
)

type incompleteFilter struct {
	toggle
}

// NewIncomplete creates a filter that removes profiles which did not finish onboarding.
func NewIncomplete() Filter {
	return &incompleteFilter{}
}

func (f *incompleteFilter) Name() string { return "incomplete" }

func (f *incompleteFilter) Apply(_ context.Context, deps Deps, pool *profile.Pool) (Step, error) {
	initial := pool.Len()
	removed := pool.RemoveFunc(func(p *profile.Profile) bool {
		return !p.Eligible()
	})
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Debug("excluding incomplete profiles",
			zap.Strings("excluded_profiles", removed),
			zap.Int("profiles_left", pool.Len()),
		)
	}

	return Step{Initial: initial, Dropped: len(removed), Left: pool.Len()}, nil
}

func (f *incompleteFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type selfFilter struct {
	toggle
}

// NewSelf creates a filter that removes the current user from their own candidates.
func NewSelf() Filter {
	return &selfFilter{}
}

func (f *selfFilter) Name() string { return "self" }

func (f *selfFilter) Apply(_ context.Context, deps Deps, pool *profile.Pool) (Step, error) {
	initial := pool.Len()
	if deps.CurrentUser == nil {
		return Step{Initial: initial, Left: initial}, nil
	}

	id := deps.CurrentUser.ID
	pool.RemoveFunc(func(p *profile.Profile) bool {
		return p != nil && p.ID == id
	})

	return Step{Initial: initial, Dropped: initial - pool.Len(), Left: pool.Len()}, nil
}

func (f *selfFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
