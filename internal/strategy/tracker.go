package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"accord/internal/logging"
)

// contextWeight favors context-specific history over global history when
// ranking candidates.
const contextWeight = 1.2

// Tracker records attempt outcomes and recommends strategies.
// It is not safe for concurrent use; accord runs one resolution per
// working tree at a time.
type Tracker struct {
	path  string
	store *storeFile
	known map[Strategy]bool
	now   func() time.Time
}

// NewTracker loads (or initializes) the stats store at path.
func NewTracker(path string) (*Tracker, error) {
	store, err := loadStore(path)
	if err != nil {
		return nil, err
	}

	known := make(map[Strategy]bool, len(KnownStrategies))
	for _, s := range KnownStrategies {
		known[s] = true
	}

	return &Tracker{path: path, store: store, known: known, now: time.Now}, nil
}

// RecordAttempt folds one resolution attempt into the global bucket and
// every context bucket implied by the supplied context map. Unknown
// strategy names and unknown context-type keys are ignored.
func (t *Tracker) RecordAttempt(strat Strategy, contexts map[string]string, success bool, duration time.Duration) error {
	if !t.known[strat] {
		logging.StrategyDebug("ignoring attempt for unknown strategy %q", strat)
		return nil
	}

	now := t.now()

	global, ok := t.store.GlobalStats[strat]
	if !ok {
		global = &Stats{}
		t.store.GlobalStats[strat] = global
	}
	global.record(success, duration, now)

	for ctxType, ctxValue := range contexts {
		if !KnownContextTypes[ctxType] {
			logging.StrategyDebug("ignoring unknown context type %q", ctxType)
			continue
		}
		key := contextKey(ctxType, ctxValue)
		bucket, ok := t.store.Contexts[key]
		if !ok {
			bucket = make(map[Strategy]*Stats)
			t.store.Contexts[key] = bucket
		}
		stats, ok := bucket[strat]
		if !ok {
			stats = &Stats{}
			bucket[strat] = stats
		}
		stats.record(success, duration, now)
	}

	logging.Strategy("recorded %s attempt: success=%v duration=%v contexts=%d",
		strat, success, duration, len(contexts))

	return saveStore(t.path, t.store)
}

// GlobalStats returns a copy of the global bucket for reporting.
func (t *Tracker) GlobalStats() map[Strategy]Stats {
	out := make(map[Strategy]Stats, len(t.store.GlobalStats))
	for s, stats := range t.store.GlobalStats {
		out[s] = *stats
	}
	return out
}

// candidate is an internal ranking entry.
type candidate struct {
	strategy Strategy
	winRate  float64
	weighted float64
	samples  int
	context  string // empty for global
}

// Recommend picks the best strategy for the given context map.
// minSampleSize is the attempt floor below which a bucket is not trusted;
// values below 1 default to 3.
func (t *Tracker) Recommend(contexts map[string]string, minSampleSize int) Recommendation {
	if minSampleSize < 1 {
		minSampleSize = 3
	}

	var candidates []candidate
	covered := make(map[Strategy]bool)
	var matched []string

	// Context buckets first, with a weight bonus
	for ctxType, ctxValue := range contexts {
		if !KnownContextTypes[ctxType] {
			continue
		}
		key := contextKey(ctxType, ctxValue)
		bucket, ok := t.store.Contexts[key]
		if !ok {
			continue
		}
		best, ok := bestInBucket(bucket, minSampleSize)
		if !ok {
			continue
		}
		matched = append(matched, key)
		if covered[best.strategy] {
			continue
		}
		covered[best.strategy] = true
		best.weighted = best.winRate * contextWeight
		best.context = key
		candidates = append(candidates, best)
	}

	// Global strategies fill in the rest
	for strat, stats := range t.store.GlobalStats {
		if covered[strat] || stats.Uses < minSampleSize {
			continue
		}
		covered[strat] = true
		candidates = append(candidates, candidate{
			strategy: strat,
			winRate:  stats.WinRate(),
			weighted: stats.WinRate(),
			samples:  stats.Uses,
		})
	}

	if len(candidates) == 0 {
		logging.StrategyDebug("no qualifying history (min samples %d), using default order", minSampleSize)
		rec := Recommendation{
			Strategy:   DefaultOrder[0],
			Confidence: 0.3,
			Reasoning:  "no historical data for this context; defaulting to merge-first strategy order",
		}
		for _, s := range DefaultOrder[1:] {
			if len(rec.Alternatives) == 3 {
				break
			}
			rec.Alternatives = append(rec.Alternatives, Alternative{Strategy: s})
		}
		return rec
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weighted != candidates[j].weighted {
			return candidates[i].weighted > candidates[j].weighted
		}
		// Deterministic tie break: more samples, then name
		if candidates[i].samples != candidates[j].samples {
			return candidates[i].samples > candidates[j].samples
		}
		return candidates[i].strategy < candidates[j].strategy
	})

	top := candidates[0]
	confidence := math.Min(0.95, top.winRate*(1-1/float64(top.samples+1)))

	reasoning := fmt.Sprintf("%s has a %.0f%% win rate over %d attempts", top.strategy, top.winRate*100, top.samples)
	if top.context != "" {
		reasoning += fmt.Sprintf(" in context %s", top.context)
	}

	sort.Strings(matched)
	rec := Recommendation{
		Strategy:         top.strategy,
		Confidence:       confidence,
		Reasoning:        reasoning,
		WinRate:          top.winRate,
		SampleSize:       top.samples,
		MatchingContexts: matched,
	}
	for _, c := range candidates[1:] {
		if len(rec.Alternatives) == 3 {
			break
		}
		rec.Alternatives = append(rec.Alternatives, Alternative{
			Strategy:   c.strategy,
			WinRate:    c.winRate,
			SampleSize: c.samples,
		})
	}

	logging.Strategy("recommending %s (confidence %.2f, %d alternatives)",
		rec.Strategy, rec.Confidence, len(rec.Alternatives))

	return rec
}

// bestInBucket returns the highest win-rate strategy in a context bucket
// that meets the sample floor.
func bestInBucket(bucket map[Strategy]*Stats, minSampleSize int) (candidate, bool) {
	var best candidate
	found := false
	for strat, stats := range bucket {
		if stats.Uses < minSampleSize {
			continue
		}
		wr := stats.WinRate()
		if !found || wr > best.winRate || (wr == best.winRate && strat < best.strategy) {
			best = candidate{strategy: strat, winRate: wr, samples: stats.Uses}
			found = true
		}
	}
	return best, found
}

func contextKey(ctxType, ctxValue string) string {
	return ctxType + ":" + strings.ToLower(ctxValue)
}
