package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/aggregate"
	"github.com/sells-group/profile-cli/internal/cache"
	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/mapper"
	"github.com/sells-group/profile-cli/internal/orchestrator"
	"github.com/sells-group/profile-cli/internal/profile"
	"github.com/sells-group/profile-cli/internal/resilience"
	"github.com/sells-group/profile-cli/internal/resolve"
	"github.com/sells-group/profile-cli/internal/synthesis"
	anthropicpkg "github.com/sells-group/profile-cli/pkg/anthropic"
	"github.com/sells-group/profile-cli/pkg/cfpb"
	"github.com/sells-group/profile-cli/pkg/courtlistener"
	"github.com/sells-group/profile-cli/pkg/edgar"
	"github.com/sells-group/profile-cli/pkg/gleif"
	"github.com/sells-group/profile-cli/pkg/newsfeed"
)

// engineEnv holds every initialized client, the source catalog, and the
// engine needed by the profile/serve commands.
type engineEnv struct {
	Engine  *profile.Engine
	Catalog *catalog.Registry
	Cache   cache.Cache
}

// Close releases resources held by the engine environment.
func (ee *engineEnv) Close() {
	if ee.Cache != nil {
		_ = ee.Cache.Close()
	}
}

// initEngine sets up the registry client, the source catalog, the cache,
// and the engine. Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	registryClient := gleif.New(
		gleif.WithBaseURL(cfg.Registry.BaseURL),
		gleif.WithRateLimit(cfg.Registry.RequestsPerSec),
		gleif.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Registry.TimeoutSecs) * time.Second}),
	)
	resolver := resolve.NewResolver(registryClient, cfg.Registry.MaxCandidates)

	reg, err := buildCatalog()
	if err != nil {
		return nil, err
	}

	ca, err := initCache(ctx)
	if err != nil {
		return nil, err
	}

	// Claude collaborators are optional; without a key the mapper falls
	// back to deterministic scope rules and no prose is generated.
	var semantic mapper.SemanticMapper
	var narrator synthesis.Narrator
	if cfg.Anthropic.Key != "" {
		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		semantic = mapper.NewClaudeSemanticMapper(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		narrator = synthesis.NewClaudeNarrator(anthropicClient, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
		zap.L().Info("anthropic collaborators enabled", zap.String("model", cfg.Anthropic.Model))
	} else {
		zap.L().Debug("PROFILE_ANTHROPIC_KEY not set, semantic mapping and narrative disabled")
	}

	m := mapper.New(semantic, time.Duration(cfg.Engine.DefaultTimeoutSecs)*time.Second)

	retry := resilience.DefaultPolicy()
	if cfg.Engine.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.Engine.RetryMaxAttempts
	}
	if cfg.Engine.RetryBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.Engine.RetryBackoffMs) * time.Millisecond
	}

	collector := orchestrator.New(reg,
		orchestrator.WithConcurrency(cfg.Engine.FanoutConcurrency),
		orchestrator.WithCache(ca, cfg.Cache.TTL()),
		orchestrator.WithRetryPolicy(retry),
	)

	merger := aggregate.NewMerger()
	analyzer := synthesis.NewAnalyzer(cfg.Engine.TrendThresholdPct, cfg.Engine.AnalyzeConcurrency)

	zap.L().Info("engine initialized",
		zap.Strings("sources", reg.AllIDs()),
		zap.Int("fanout_concurrency", cfg.Engine.FanoutConcurrency),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	return &engineEnv{
		Engine:  profile.New(resolver, m, collector, merger, analyzer, narrator, reg),
		Catalog: reg,
		Cache:   ca,
	}, nil
}

// buildCatalog registers every provider adapter and applies any YAML
// overrides from sources.catalog_file.
func buildCatalog() (*catalog.Registry, error) {
	reg := catalog.NewRegistry()

	newsOpts := []newsfeed.Option{
		newsfeed.WithFeedURL(cfg.Sources.News.FeedURL),
		newsfeed.WithMaxItems(cfg.Sources.News.MaxItems),
	}
	if cfg.Sources.News.TimeoutSecs > 0 {
		newsOpts = append(newsOpts, newsfeed.WithTimeout(time.Duration(cfg.Sources.News.TimeoutSecs)*time.Second))
	}
	reg.Register(newsfeed.New(newsOpts...))

	reg.Register(cfpb.New(cfpb.WithBaseURL(cfg.Sources.CFPB.BaseURL)))
	reg.Register(edgar.New(
		edgar.WithBaseURL(cfg.Sources.EDGAR.BaseURL),
		edgar.WithUserAgent(cfg.Sources.EDGAR.UserAgent),
	))
	reg.Register(courtlistener.New(
		courtlistener.WithBaseURL(cfg.Sources.Courts.BaseURL),
		courtlistener.WithAPIKey(cfg.Sources.Courts.APIKey),
	))

	if cfg.Sources.CatalogFile != "" {
		overrides, err := catalog.LoadOverrides(cfg.Sources.CatalogFile)
		if err != nil {
			return nil, eris.Wrap(err, "load catalog overrides")
		}
		reg = reg.Apply(overrides)
	}

	return reg, nil
}

// initCache builds the configured cache backend. Unknown drivers are an
// error rather than a silent fallback.
func initCache(ctx context.Context) (cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "sqlite", "":
		ca, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite cache")
		}
		return ca, nil
	case "postgres":
		ca, err := cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres cache")
		}
		return ca, nil
	case "none":
		return cache.Noop{}, nil
	default:
		return nil, eris.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
