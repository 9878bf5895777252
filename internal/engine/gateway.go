package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ldaudit/ldaudit/internal/engine/cache"
	"github.com/ldaudit/ldaudit/internal/logging"
)

// OperationListFlags is the cache operation name for flag list requests.
const OperationListFlags = "list_flags"

// FlagSource fetches the raw flag list for a project.
type FlagSource interface {
	FetchFlags(ctx context.Context, project string, environments []string) (json.RawMessage, error)
}

// FlagCache is the subset of the cache store the gateway needs.
type FlagCache interface {
	Lookup(ctx context.Context, key string) (json.RawMessage, bool)
	Put(key string, meta cache.Metadata, data json.RawMessage) error
}

// FlagProvider returns flag sets; *Gateway is the production implementation.
type FlagProvider interface {
	Flags(ctx context.Context, req FetchRequest) (*FlagSet, error)
}

// FetchRequest identifies the flag data to load.
type FetchRequest struct {
	Project      string
	Environments []string
	Mode         cache.Mode
}

// cachedFlags is the payload stored in the cache.
type cachedFlags struct {
	FetchedAt time.Time `json:"fetched_at"`
	Flags     []Flag    `json:"flags"`
}

// Gateway serves flag data from the cache or the source.
type Gateway struct {
	source    FlagSource
	cache     FlagCache
	keyParams map[string]string
	now       func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithCache enables caching through c.
func WithCache(c FlagCache) GatewayOption {
	return func(g *Gateway) { g.cache = c }
}

// WithKeyParam adds a value to every cache key, so that for example two API
// hosts never share entries.
func WithKeyParam(name, value string) GatewayOption {
	return func(g *Gateway) { g.keyParams[name] = value }
}

// WithGatewayClock overrides the clock used for FetchedAt.
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway returns a gateway reading from source.
func NewGateway(source FlagSource, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		source:    source,
		keyParams: make(map[string]string),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Flags returns the normalized flags for req.Project. Fresh cache entries
// are served without calling the source unless req.Mode bypasses reads.
// Fetched data is written back to the cache; cache failures never fail the
// request.
func (g *Gateway) Flags(ctx context.Context, req FetchRequest) (*FlagSet, error) {
	log := logging.FromContext(ctx)

	project := strings.TrimSpace(req.Project)
	if project == "" {
		return nil, configError("project key is required")
	}
	envs := req.Environments

	key, keyErr := g.cacheKey(project, envs)
	if keyErr != nil {
		return nil, configError("%v", keyErr)
	}

	if g.cache != nil && req.Mode.ReadAllowed() {
		if set, ok := g.fromCache(ctx, key, project, envs); ok {
			log.Debug().
				Ctx(ctx).
				Str("component", "gateway").
				Str("operation", OperationListFlags).
				Str("project", project).
				Int("flags", len(set.Flags)).
				Msg("serving flags from cache")
			return set, nil
		}
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "gateway").
		Str("operation", OperationListFlags).
		Str("project", project).
		Strs("environments", envs).
		Str("cache_mode", req.Mode.String()).
		Msg("fetching flags from source")

	raw, err := g.source.FetchFlags(ctx, project, envs)
	if err != nil {
		return nil, newSourceError(project, err)
	}

	flags, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	set := &FlagSet{
		Project:      project,
		Environments: envs,
		Flags:        flags,
		FetchedAt:    g.now().UTC(),
	}

	if g.cache != nil && req.Mode.WriteAllowed() {
		g.store(ctx, key, set)
	}

	return set, nil
}

func (g *Gateway) cacheKey(project string, envs []string) (string, error) {
	b := cache.NewKeyParamsBuilder(OperationListFlags, project).WithEnvironments(envs...)
	for name, value := range g.keyParams {
		b.WithParam(name, value)
	}
	return b.Build()
}

func (g *Gateway) fromCache(ctx context.Context, key, project string, envs []string) (*FlagSet, bool) {
	payload, ok := g.cache.Lookup(ctx, key)
	if !ok {
		return nil, false
	}

	var cached cachedFlags
	if err := json.Unmarshal(payload, &cached); err != nil || cached.Flags == nil {
		log := logging.FromContext(ctx)
		log.Debug().
			Ctx(ctx).
			Str("component", "gateway").
			Str("key", key).
			Err(errors.Join(cache.ErrCacheCorrupt, err)).
			Msg("cached flag payload unusable, refetching")
		return nil, false
	}

	return &FlagSet{
		Project:      project,
		Environments: envs,
		Flags:        cached.Flags,
		FetchedAt:    cached.FetchedAt,
		FromCache:    true,
	}, true
}

func (g *Gateway) store(ctx context.Context, key string, set *FlagSet) {
	log := logging.FromContext(ctx)

	payload, err := json.Marshal(cachedFlags{FetchedAt: set.FetchedAt, Flags: set.Flags})
	if err != nil {
		log.Warn().Ctx(ctx).Str("component", "gateway").Err(err).Msg("failed to encode flags for cache")
		return
	}

	meta := cache.Metadata{Operation: OperationListFlags, Label: set.Project}
	if err := g.cache.Put(key, meta, payload); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		log.Warn().
			Ctx(ctx).
			Str("component", "gateway").
			Str("key", key).
			Err(err).
			Msg("failed to write flags to cache")
	}
}
