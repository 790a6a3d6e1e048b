// Package metrics collects business metrics for the legal retrieval engine.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// EngineMetrics holds counters for queries, retrieval, generation and
// attribution. All counters are updated atomically; durations are guarded
// by a dedicated mutex because float64 has no atomic add.
type EngineMetrics struct {
	queriesTotal       uint64
	queriesCacheHits   uint64
	queriesCacheMisses uint64
	queriesErrors      uint64
	queriesNoResults   uint64

	retrievalTotal    uint64
	retrievalDuration float64
	retrievalErrors   uint64
	exactLookups      uint64

	llmCallsTotal    uint64
	llmCallsDuration float64
	llmCallsErrors   uint64
	llmCallsRetries  uint64

	unitsTotal    uint64
	unitsVerbatim uint64
	unitsDerived  uint64
	downgrades    uint64

	startTime  time.Time
	durationMu sync.Mutex
}

// New creates an EngineMetrics handle. The serving process constructs one
// at startup and threads it through explicitly.
func New() *EngineMetrics {
	return &EngineMetrics{startTime: time.Now()}
}

// RecordQuery records one end-to-end query.
func (m *EngineMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordNoResults records a query that found no relevant law. This is a
// legitimate outcome, tracked separately from errors.
func (m *EngineMetrics) RecordNoResults() {
	atomic.AddUint64(&m.queriesNoResults, 1)
}

// RecordRetrieval records one retrieval pipeline run.
func (m *EngineMetrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}
	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordExactLookup records a retrieval answered by a direct section-number
// lookup, bypassing the semantic cascade.
func (m *EngineMetrics) RecordExactLookup() {
	atomic.AddUint64(&m.exactLookups, 1)
}

// RecordLLMCall records one generation or embedding provider call.
func (m *EngineMetrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}
	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMRetry records one provider retry.
func (m *EngineMetrics) RecordLLMRetry() {
	atomic.AddUint64(&m.llmCallsRetries, 1)
}

// RecordAttribution records the outcome of one span-resolution pass.
// downgrades counts units that claimed verbatim but failed resolution.
func (m *EngineMetrics) RecordAttribution(verbatim, derived, downgrades int) {
	atomic.AddUint64(&m.unitsTotal, uint64(verbatim+derived))
	atomic.AddUint64(&m.unitsVerbatim, uint64(verbatim))
	atomic.AddUint64(&m.unitsDerived, uint64(derived))
	atomic.AddUint64(&m.downgrades, uint64(downgrades))
}

func writeCounter(sb *strings.Builder, name, help string, value uint64) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s counter\n", name)
	fmt.Fprintf(sb, "%s %d\n\n", name, value)
}

func writeGauge(sb *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s gauge\n", name)
	fmt.Fprintf(sb, "%s %.6f\n\n", name, value)
}

// Export renders the metrics in Prometheus text exposition format.
func (m *EngineMetrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	writeCounter(&sb, prefix+"_queries_total", "Total number of legal queries.", atomic.LoadUint64(&m.queriesTotal))
	writeCounter(&sb, prefix+"_queries_cache_hits_total", "Number of query cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	writeCounter(&sb, prefix+"_queries_cache_misses_total", "Number of query cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	writeCounter(&sb, prefix+"_queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))
	writeCounter(&sb, prefix+"_queries_no_results_total", "Number of queries with no relevant law found.", atomic.LoadUint64(&m.queriesNoResults))

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheHitRate := 0.0
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheHits+cacheMisses)
	}
	writeGauge(&sb, prefix+"_cache_hit_rate", "Query cache hit rate (0-1).", cacheHitRate)

	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	writeCounter(&sb, prefix+"_retrieval_total", "Total number of retrieval runs.", atomic.LoadUint64(&m.retrievalTotal))
	writeGauge(&sb, prefix+"_retrieval_duration_seconds_total", "Total retrieval duration.", retrievalDuration)
	writeCounter(&sb, prefix+"_retrieval_errors_total", "Number of retrieval errors.", atomic.LoadUint64(&m.retrievalErrors))
	writeCounter(&sb, prefix+"_exact_lookups_total", "Retrievals served by direct section lookup.", atomic.LoadUint64(&m.exactLookups))

	writeCounter(&sb, prefix+"_llm_calls_total", "Total number of provider calls.", atomic.LoadUint64(&m.llmCallsTotal))
	writeGauge(&sb, prefix+"_llm_calls_duration_seconds_total", "Total provider call duration.", llmDuration)
	writeCounter(&sb, prefix+"_llm_calls_errors_total", "Number of provider call errors.", atomic.LoadUint64(&m.llmCallsErrors))
	writeCounter(&sb, prefix+"_llm_calls_retries_total", "Number of provider call retries.", atomic.LoadUint64(&m.llmCallsRetries))

	writeCounter(&sb, prefix+"_answer_units_total", "Total attributed answer units.", atomic.LoadUint64(&m.unitsTotal))
	writeCounter(&sb, prefix+"_answer_units_verbatim_total", "Answer units resolved as verbatim.", atomic.LoadUint64(&m.unitsVerbatim))
	writeCounter(&sb, prefix+"_answer_units_derived_total", "Answer units classified as derived.", atomic.LoadUint64(&m.unitsDerived))
	writeCounter(&sb, prefix+"_attribution_downgrades_total", "Verbatim claims downgraded to derived.", atomic.LoadUint64(&m.downgrades))

	writeGauge(&sb, prefix+"_uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())
	return sb.String()
}

// Stats returns the current metrics as a nested map for the stats API.
func (m *EngineMetrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheHitRate := 0.0
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheHits+cacheMisses)
	}

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrieval := 0.0
	if retrievalTotal > 0 {
		avgRetrieval = retrievalDuration / float64(retrievalTotal)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLM := 0.0
	if llmTotal > 0 {
		avgLLM = llmDuration / float64(llmTotal)
	}

	return map[string]interface{}{
		"queries": map[string]interface{}{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         atomic.LoadUint64(&m.queriesErrors),
			"no_results":     atomic.LoadUint64(&m.queriesNoResults),
		},
		"retrieval": map[string]interface{}{
			"total":               retrievalTotal,
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrieval,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
			"exact_lookups":       atomic.LoadUint64(&m.exactLookups),
		},
		"llm": map[string]interface{}{
			"calls_total":         llmTotal,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLM,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
			"retries":             atomic.LoadUint64(&m.llmCallsRetries),
		},
		"attribution": map[string]interface{}{
			"units_total":    atomic.LoadUint64(&m.unitsTotal),
			"units_verbatim": atomic.LoadUint64(&m.unitsVerbatim),
			"units_derived":  atomic.LoadUint64(&m.unitsDerived),
			"downgrades":     atomic.LoadUint64(&m.downgrades),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset zeroes all counters. Test helper.
func (m *EngineMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.queriesNoResults, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.exactLookups, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.llmCallsRetries, 0)
	atomic.StoreUint64(&m.unitsTotal, 0)
	atomic.StoreUint64(&m.unitsVerbatim, 0)
	atomic.StoreUint64(&m.unitsDerived, 0)
	atomic.StoreUint64(&m.downgrades, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
