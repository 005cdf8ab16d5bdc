package matching

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/roomie-matcher/internal/ai"
	"github.com/spigell/roomie-matcher/internal/compat"
	"github.com/spigell/roomie-matcher/internal/filtering"
	"github.com/spigell/roomie-matcher/internal/logger"
	"github.com/spigell/roomie-matcher/internal/metrics"
	"github.com/spigell/roomie-matcher/internal/profile"
)

// Config tunes the ranker.
type Config struct {
	Concurrency int           `mapstructure:"concurrency"`
	AITimeout   time.Duration `mapstructure:"ai-timeout"`
}

// Ranker scores candidates against the current user and orders them.
// A Ranker is safe for concurrent use.
type Ranker struct {
	assessor    ai.Assessor
	filters     []filtering.Filter
	logger      *zap.Logger
	concurrency int
	timeout     time.Duration
}

// NewRanker creates a ranker. A nil assessor makes every AI request fall back.
// Nil filters mean filtering.Default without a dismiss file. Incomplete
// profiles and the current user are dropped regardless of the filters.
func NewRanker(cfg Config, assessor ai.Assessor, filters []filtering.Filter, log *zap.Logger) *Ranker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = DefaultAITimeout
	}
	if filters == nil {
		filters = filtering.Default("")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Ranker{
		assessor:    assessor,
		filters:     filters,
		logger:      log,
		concurrency: cfg.Concurrency,
		timeout:     cfg.AITimeout,
	}
}

// Rank returns the candidates scoring at least c.MinScore, best first,
// at most c.MaxResults of them. Equal scores keep the input order.
func (r *Ranker) Rank(ctx context.Context, c Criteria) ([]*MatchResult, error) {
	if c.CurrentUser == nil {
		return nil, ErrNoCurrentUser
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}

	started := time.Now()
	log := logger.WithPair(r.logger, c.CurrentUser.ID, "")

	// Filters remove in place; the caller's slice stays untouched.
	pool := &profile.Pool{Items: slices.Clone(c.Candidates)}
	if err := filtering.Run(ctx, filtering.Deps{Logger: log, CurrentUser: c.CurrentUser}, r.filters, pool); err != nil {
		return nil, err
	}
	pool.RemoveFunc(func(p *profile.Profile) bool {
		return !p.Eligible() || p.ID == c.CurrentUser.ID
	})

	scored := make([]*MatchResult, pool.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, candidate := range pool.Items {
		g.Go(func() error {
			scored[i] = r.score(gctx, log, c.CurrentUser, candidate, c.UseAI)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]*MatchResult, 0, len(scored))
	for _, m := range scored {
		if m.Score >= c.MinScore {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > c.MaxResults {
		matches = matches[:c.MaxResults]
	}

	metrics.RankingDuration.WithLabelValues(strconv.FormatBool(c.UseAI)).Observe(time.Since(started).Seconds())
	metrics.MatchesReturned.Observe(float64(len(matches)))

	log.Info("ranking completed",
		zap.Int("candidates", len(c.Candidates)),
		zap.Int("scored", len(scored)),
		zap.Int("matches", len(matches)),
		zap.Bool("use_ai", c.UseAI),
		zap.Duration("took", time.Since(started)),
	)

	return matches, nil
}

// score computes one match. It never fails: AI problems downgrade to the rule-based result.
func (r *Ranker) score(ctx context.Context, log *zap.Logger, current, candidate *profile.Profile, useAI bool) *MatchResult {
	rule := compat.Score(current, candidate)
	result := &MatchResult{
		Profile: candidate,
		Score:   rule.Overall,
		Reasons: rule.Reasons,
		Scores:  rule.Scores,
		AIState: RuleBasedOnly,
	}
	if !useAI {
		return result
	}

	result.AIState = AIRequested
	log = log.With(zap.String(logger.FieldCandidate, candidate.ID))

	assessment, err := r.assess(ctx, current, candidate, rule.Overall)
	if err != nil {
		outcome := outcomeOf(err)
		metrics.AIAssessments.WithLabelValues(outcome).Inc()
		log.Warn("ai assessment failed, keeping rule-based score",
			zap.String("outcome", outcome),
			zap.Float64("rule_score", rule.Overall),
			zap.Error(err),
		)

		result.Reasons = append(slices.Clone(rule.Reasons), fallbackReasons...)
		result.AIState = AIFallback
		return result
	}

	metrics.AIAssessments.WithLabelValues(metrics.OutcomeApplied).Inc()

	aiReasons := assessment.Reasons
	if len(aiReasons) > maxAIReasons {
		aiReasons = aiReasons[:maxAIReasons]
	}

	result.Score = clampScore(assessment.Score)
	result.Reasons = append(slices.Clone(rule.Reasons), aiReasons...)
	result.Concerns = assessment.Concerns
	result.AIState = AIApplied

	log.Debug("ai assessment applied",
		zap.String(logger.FieldAIState, string(result.AIState)),
		zap.Float64("rule_score", rule.Overall),
		zap.Float64("ai_score", result.Score),
	)

	return result
}

var errNoAssessor = errors.New("ai assessor is not configured")

func (r *Ranker) assess(ctx context.Context, current, candidate *profile.Profile, ruleScore float64) (*ai.Assessment, error) {
	if r.assessor == nil {
		return nil, errNoAssessor
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	assessment, err := r.assessor.Assess(ctx, current, candidate, ruleScore)
	if err != nil {
		return nil, err
	}
	if assessment == nil || math.IsNaN(assessment.Score) {
		return nil, ai.ErrMalformedResponse
	}
	return assessment, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case errors.Is(err, ai.ErrMalformedResponse):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeError
	}
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
