package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/profile"
)

type dismissedFilter struct {
	toggle
	path string
}

// NewDismissed creates a filter that removes profiles the current user dismissed earlier.
// The dismiss file is read on every run so that new dismissals apply without a restart.
func NewDismissed(path string) Filter {
	return &dismissedFilter{path: strings.TrimSpace(path)}
}

func (f *dismissedFilter) Name() string { return "dismissed" }

func (f *dismissedFilter) Apply(_ context.Context, deps Deps, pool *profile.Pool) (Step, error) {
	initial := pool.Len()
	if f.path == "" || deps.CurrentUser == nil {
		return Step{Initial: initial, Left: initial}, nil
	}

	dismissed, err := ReadDismissFile(f.path)
	if err != nil {
		return Step{}, fmt.Errorf("reading dismissed profiles: %w", err)
	}

	ids := make(map[string]struct{})
	for _, id := range dismissed.IDsFor(deps.CurrentUser.ID) {
		ids[id] = struct{}{}
	}
	if len(ids) == 0 {
		return Step{Initial: initial, Left: initial}, nil
	}

	removed := pool.RemoveFunc(func(p *profile.Profile) bool {
		if p == nil {
			return false
		}
		_, ok := ids[p.ID]
		return ok
	})
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Debug("excluding profiles based on dismiss file",
			zap.String("path", f.path),
			zap.Strings("excluded_profiles", removed),
			zap.Int("profiles_left", pool.Len()),
		)
	}

	return Step{Initial: initial, Dropped: len(removed), Left: pool.Len()}, nil
}

func (f *dismissedFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
