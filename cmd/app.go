package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/roomie-matcher/internal/ai"
	"github.com/spigell/roomie-matcher/internal/ai/cache"
	"github.com/spigell/roomie-matcher/internal/ai/gemini"
	"github.com/spigell/roomie-matcher/internal/filtering"
	"github.com/spigell/roomie-matcher/internal/matching"
	"github.com/spigell/roomie-matcher/internal/profile"
	"github.com/spigell/roomie-matcher/internal/secrets"
)

// components are the long-lived dependencies shared by the match and serve commands.
type components struct {
	store     profile.Store
	ranker    *matching.Ranker
	cache     cache.Store
	aiEnabled bool
}

func (c *components) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

func buildComponents(ctx context.Context, config *Config, logger *zap.Logger) (*components, error) {
	if config == nil || config.Profiles == nil || config.Matching == nil {
		return nil, errors.New("config is required")
	}

	store, err := profile.Open(config.Profiles.Driver, config.Profiles.Path)
	if err != nil {
		return nil, fmt.Errorf("opening profile store: %w", err)
	}

	built := &components{store: store}

	filters, err := prepareFilters(config, logger)
	if err != nil {
		built.Close()
		return nil, err
	}

	var (
		assessor ai.Assessor
		timeout  = matching.DefaultAITimeout
	)
	if config.AI != nil && config.AI.Enabled {
		var cacheStore cache.Store
		assessor, cacheStore, err = newAIAssessor(ctx, config.AI, logger)
		if err != nil {
			built.Close()
			return nil, fmt.Errorf("building ai assessor: %w", err)
		}
		built.cache = cacheStore
		built.aiEnabled = true
		timeout = config.AI.Timeout
	}

	built.ranker = matching.NewRanker(
		matching.Config{Concurrency: config.Matching.Concurrency, AITimeout: timeout},
		assessor,
		filters,
		logger,
	)

	return built, nil
}

func prepareFilters(config *Config, logger *zap.Logger) ([]filtering.Filter, error) {
	steps := filtering.Default(config.Profiles.DismissFile)

	known := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		known[step.Name()] = struct{}{}
	}
	for _, name := range config.Matching.DisabledFilters {
		name = strings.TrimSpace(name)
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown filter %q in matching.disabled-filters", name)
		}
		filtering.DisableByName(steps, name, "disabled by configuration")
	}

	logger.Debug("candidate filters", zap.Any("filters", filtering.Describe(steps)))
	return steps, nil
}

func newAIAssessor(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Assessor, cache.Store, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Cache == nil {
		return gemini.NewAssessor(generator, cfg.MaxLogLength, generator.Logger()), nil, nil
	}

	store, err := cache.Open(ctx, cfg.Cache.Driver, cfg.Cache.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ai cache: %w", err)
	}
	if store == nil {
		return gemini.NewAssessor(generator, cfg.MaxLogLength, generator.Logger()), nil, nil
	}

	logger.Info("ai response cache enabled", zap.String("driver", cfg.Cache.Driver), zap.Duration("ttl", cfg.Cache.TTL))

	cached := cache.NewGenerator(generator, store, generator.Model(), cfg.Cache.TTL, generator.Logger()).
		Accept(gemini.ValidResponse)
	return gemini.NewAssessor(cached, cfg.MaxLogLength, generator.Logger()), store, nil
}
