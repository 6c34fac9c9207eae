package summaries

import (
	"context"
	"sort"
	"strings"

	"github.com/ariellewolter/research-notebook-ver4-sub004/application/ports"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedResolver puts a TTL cache in front of another resolver. Misses are
// cached too, so an entity that does not exist is not looked up again until
// its entry expires.
type CachedResolver struct {
	inner   ports.SummaryResolver
	cache   ports.Cache
	ttl     int
	group   singleflight.Group
	metrics *observability.Collector
	logger  *zap.Logger
}

var _ ports.SummaryResolver = (*CachedResolver)(nil)

// NewCachedResolver wraps inner. ttl is in seconds; metrics may be nil.
func NewCachedResolver(inner ports.SummaryResolver, cache ports.Cache, ttl int, metrics *observability.Collector, logger *zap.Logger) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func cacheKey(ref valueobjects.EntityRef) string {
	return "summary:" + ref.Key()
}

// Resolve serves what it can from the cache and fetches the rest in one call.
// Concurrent callers asking for the same missing set share that call.
func (r *CachedResolver) Resolve(ctx context.Context, refs []valueobjects.EntityRef) (map[valueobjects.EntityRef]*entities.EntitySummary, error) {
	out := make(map[valueobjects.EntityRef]*entities.EntitySummary, len(refs))
	seen := make(map[valueobjects.EntityRef]struct{}, len(refs))
	var missing []valueobjects.EntityRef

	for _, ref := range refs {
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		if v, ok := r.cache.Get(ctx, cacheKey(ref)); ok {
			r.hit()
			if s, _ := v.(*entities.EntitySummary); s != nil {
				out[ref] = s
			}
			continue
		}
		r.miss()
		missing = append(missing, ref)
	}

	if len(missing) == 0 {
		return out, nil
	}

	v, err, shared := r.group.Do(flightKey(missing), func() (interface{}, error) {
		found, err := r.inner.Resolve(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, ref := range missing {
			// a typed nil marks a known miss
			if err := r.cache.Set(ctx, cacheKey(ref), found[ref], r.ttl); err != nil {
				r.logger.Warn("Failed to cache summary", zap.String("ref", ref.Key()), zap.Error(err))
			}
		}
		return found, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("Shared in-flight summary lookup", zap.Int("refs", len(missing)))
	}

	for ref, s := range v.(map[valueobjects.EntityRef]*entities.EntitySummary) {
		if s != nil {
			out[ref] = s
		}
	}
	return out, nil
}

func (r *CachedResolver) hit() {
	if r.metrics != nil {
		r.metrics.CacheHits.Inc()
	}
}

func (r *CachedResolver) miss() {
	if r.metrics != nil {
		r.metrics.CacheMisses.Inc()
	}
}

func flightKey(refs []valueobjects.EntityRef) string {
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.Key()
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
