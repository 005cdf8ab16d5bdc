package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/profile"
)

// Filter represents a single filtering step applied to the candidate pool.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, deps Deps, pool *profile.Pool) (Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger      *zap.Logger
	CurrentUser *profile.Profile
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// Default returns the standard candidate filters in the order they run.
func Default(dismissFile string) []Filter {
	return []Filter{
		NewIncomplete(),
		NewSelf(),
		NewDismissed(dismissFile),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially. The pool is modified in place.
func Run(ctx context.Context, deps Deps, steps []Filter, pool *profile.Pool) error {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			log.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := step.Apply(ctx, deps, pool)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}

		log.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
	}

	return nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// toggle carries the enable/disable bookkeeping shared by the filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }
