package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

// ContentGenerator produces a model response for a system instruction and prompt.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// Generator serves repeated prompts from a Store and delegates misses.
// Store failures are logged and never fail the generation.
type Generator struct {
	next   ContentGenerator
	store  Store
	model  string
	ttl    time.Duration
	accept func(string) bool
	logger *zap.Logger
}

func NewGenerator(next ContentGenerator, store Store, model string, ttl time.Duration, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		next:   next,
		store:  store,
		model:  model,
		ttl:    ttl,
		logger: log,
	}
}

// Accept sets the check a response must pass to be stored. Rejected
// responses are still returned to the caller.
func (g *Generator) Accept(fn func(response string) bool) *Generator {
	g.accept = fn
	return g
}

func (g *Generator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	key := Key(g.model, system, prompt)

	if value, ok, err := g.store.Get(ctx, key); err != nil {
		g.logger.Warn("ai cache lookup failed", zap.Error(err))
	} else if ok {
		g.logger.Debug("ai cache hit", zap.String("key", key))
		return value, nil
	}

	value, err := g.next.GenerateContent(ctx, system, prompt)
	if err != nil {
		return "", err
	}

	if g.accept != nil && !g.accept(value) {
		g.logger.Debug("ai response not cached", zap.String("key", key))
		return value, nil
	}

	if err := g.store.Set(ctx, key, value, g.ttl); err != nil {
		g.logger.Warn("ai cache store failed", zap.Error(err))
	}

	return value, nil
}

// Key derives the cache key of a model request.
func Key(model, system, prompt string) string {
	h := sha256.New()
	for _, part := range []string{model, system, prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
