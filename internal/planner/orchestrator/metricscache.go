package orchestrator

import (
	"github.com/aristath/holistic-planner/internal/planner/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// loadMetricsCache decodes the last checkpointed metrics cache for
// portfolioHash, or returns an empty map if none exists yet or the stored
// blob fails to decode (a corrupt checkpoint just costs one cold cycle).
func (o *Orchestrator) loadMetricsCache(portfolioHash string) map[string]domain.SecurityMetrics {
	blob, err := o.repo.LoadMetricsCacheCheckpoint(portfolioHash)
	if err != nil || len(blob) == 0 {
		return make(map[string]domain.SecurityMetrics)
	}
	var cache map[string]domain.SecurityMetrics
	if err := msgpack.Unmarshal(blob, &cache); err != nil {
		o.log.Warn().Err(err).Str("portfolio_hash", portfolioHash).Msg("discarding corrupt metrics cache checkpoint")
		return make(map[string]domain.SecurityMetrics)
	}
	return cache
}

// saveMetricsCache encodes and persists the merged metrics cache so the
// next incremental cycle can skip MetricsLookup for symbols it already has.
func (o *Orchestrator) saveMetricsCache(portfolioHash string, cache map[string]domain.SecurityMetrics) {
	blob, err := msgpack.Marshal(cache)
	if err != nil {
		o.log.Warn().Err(err).Str("portfolio_hash", portfolioHash).Msg("failed to encode metrics cache checkpoint")
		return
	}
	if err := o.repo.SaveMetricsCacheCheckpoint(portfolioHash, blob); err != nil {
		o.log.Warn().Err(err).Str("portfolio_hash", portfolioHash).Msg("failed to persist metrics cache checkpoint")
	}
}

// cachedMetricsLookup wraps req's MetricsLookup so symbols already present
// in cache are served without a call, and newly-seen symbols are added to
// cache as they're resolved.
func cachedMetricsLookup(lookup func(string) domain.SecurityMetrics, cache map[string]domain.SecurityMetrics) func(string) domain.SecurityMetrics {
	if lookup == nil {
		return nil
	}
	return func(symbol string) domain.SecurityMetrics {
		if m, ok := cache[symbol]; ok {
			return m
		}
		m := lookup(symbol)
		cache[symbol] = m
		return m
	}
}
