// Package orchestrator fans out source calls in parallel with bounded
// concurrency, per-call deadlines, and per-call failure isolation.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/cache"
	"github.com/sells-group/profile-cli/internal/catalog"
	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/internal/resilience"
)

// Collector executes the fan-out plan produced by the mapper.
type Collector struct {
	reg         *catalog.Registry
	cache       cache.Cache
	cacheTTL    time.Duration
	concurrency int
	retry       resilience.Policy
}

// Option configures a Collector.
type Option func(*Collector)

// WithConcurrency sets the worker pool width (default 5).
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithCache installs a result cache consulted before each call and
// populated after successful ones.
func WithCache(ca cache.Cache, ttl time.Duration) Option {
	return func(c *Collector) {
		c.cache = ca
		c.cacheTTL = ttl
	}
}

// WithRetryPolicy sets the retry policy wrapped around every adapter
// fetch.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *Collector) {
		c.retry = p
	}
}

// New creates a Collector over a source registry.
func New(reg *catalog.Registry, opts ...Option) *Collector {
	c := &Collector{
		reg:         reg,
		cache:       cache.Noop{},
		concurrency: 5,
		retry:       resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs every source call in parallel and returns exactly one
// SourceResult per call, including on failure; no call is ever silently
// dropped. Results arrive in completion order; callers must not rely on
// ordering. Collect honors ctx cancellation by cancelling all pending
// calls, but imposes no global deadline of its own: overall latency is
// bounded by the slowest per-call budget.
func (c *Collector) Collect(ctx context.Context, calls map[string]model.SourceCall) map[string]model.SourceResult {
	results := make(map[string]model.SourceResult, len(calls))
	var mu sync.Mutex

	tasks := make([]func(context.Context), 0, len(calls))
	for _, call := range calls {
		tasks = append(tasks, func(taskCtx context.Context) {
			res := c.runCall(taskCtx, call)
			mu.Lock()
			results[call.SourceID] = res
			mu.Unlock()
		})
	}

	RunLimited(ctx, c.concurrency, tasks)

	// Every call produces a result even if a unit never ran (outer
	// cancellation before scheduling).
	for id := range calls {
		if _, ok := results[id]; !ok {
			results[id] = model.SourceResult{
				SourceID:    id,
				Status:      model.StatusError,
				ErrorDetail: "collection cancelled before call started",
			}
		}
	}

	return results
}

// runCall executes one source call inside its own deadline and converts
// the outcome into a SourceResult. Failures here are isolated: they are
// logged and recorded, never propagated to sibling calls.
func (c *Collector) runCall(ctx context.Context, call model.SourceCall) model.SourceResult {
	log := zap.L().With(zap.String("source_id", call.SourceID))
	start := time.Now()

	result := model.SourceResult{SourceID: call.SourceID}

	src, err := c.reg.Get(call.SourceID)
	if err != nil {
		result.Status = model.StatusError
		result.ErrorDetail = err.Error()
		return result
	}

	if attribution, ok := c.cachedAttribution(ctx, call); ok {
		log.Debug("collect: cache hit", zap.Int("entities", len(attribution)))
		result.Status = model.StatusOK
		result.Attribution = attribution
		result.FromCache = true
		result.Duration = time.Since(start)
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, call.Timeout)
	defer cancel()

	policy := c.retry
	policy.OnRetry = resilience.RetryLogger(call.SourceID)

	var attribution []model.EntityPayload
	for i, key := range call.EntityKeys {
		payload, fetchErr := resilience.DoVal(callCtx, policy, func(fetchCtx context.Context) (*model.Payload, error) {
			return src.Fetch(fetchCtx, key)
		})
		if fetchErr != nil {
			result.Attribution = attribution // keep what completed before the failure
			result.Duration = time.Since(start)
			if errors.Is(fetchErr, context.DeadlineExceeded) && ctx.Err() == nil {
				result.Status = model.StatusTimeout
				result.ErrorDetail = "timeout after " + call.Timeout.String()
				log.Warn("collect: source timed out",
					zap.Duration("budget", call.Timeout),
					zap.String("entity_key", key),
				)
			} else {
				result.Status = model.StatusError
				result.ErrorDetail = fetchErr.Error()
				log.Warn("collect: source failed",
					zap.String("entity_key", key),
					zap.Error(fetchErr),
				)
			}
			return result
		}
		if payload.Empty() {
			continue
		}
		entity := model.Entity{Name: key, Relationship: model.RelationshipRelated}
		if i < len(call.KeyAttributes) {
			entity = call.KeyAttributes[i]
		}
		attribution = append(attribution, model.EntityPayload{
			EntityID:     entity.ID,
			EntityName:   entity.Name,
			Relationship: entity.Relationship,
			Payload:      *payload,
		})
	}

	result.Duration = time.Since(start)
	if len(attribution) == 0 {
		result.Status = model.StatusEmpty
		log.Debug("collect: source returned no data")
		return result
	}

	result.Status = model.StatusOK
	result.Attribution = attribution
	c.storeAttribution(ctx, call, attribution)

	log.Info("collect: source complete",
		zap.Int("entities", len(attribution)),
		zap.Duration("duration", result.Duration),
	)
	return result
}

// cacheKey builds a stable key for a call from its sorted entity keys.
func cacheKey(call model.SourceCall) string {
	keys := make([]string, len(call.EntityKeys))
	copy(keys, call.EntityKeys)
	sort.Strings(keys)
	return strings.ToLower(strings.Join(keys, "|"))
}

func (c *Collector) cachedAttribution(ctx context.Context, call model.SourceCall) ([]model.EntityPayload, bool) {
	data, found, err := c.cache.Get(ctx, call.SourceID, cacheKey(call))
	if err != nil {
		zap.L().Warn("collect: cache get failed", zap.String("source_id", call.SourceID), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	var attribution []model.EntityPayload
	if err := json.Unmarshal(data, &attribution); err != nil {
		zap.L().Warn("collect: cache entry corrupt", zap.String("source_id", call.SourceID), zap.Error(err))
		return nil, false
	}
	return attribution, true
}

func (c *Collector) storeAttribution(ctx context.Context, call model.SourceCall, attribution []model.EntityPayload) {
	data, err := json.Marshal(attribution)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, call.SourceID, cacheKey(call), data, c.cacheTTL); err != nil {
		zap.L().Warn("collect: cache set failed", zap.String("source_id", call.SourceID), zap.Error(err))
	}
}
