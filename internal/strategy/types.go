// Package strategy records how each conflict-resolution strategy performs
// per context and recommends the best strategy for a new conflict.
// Durable state is one JSON file with last-writer-wins semantics; exactly
// one process is expected to write it at a time.
package strategy

import (
	"time"
)

// Strategy is a closed set of resolution strategies the tracker knows.
// Attempts recorded against any other name are ignored.
type Strategy string

const (
	// StrategyMerge attempts a three-way textual merge.
	StrategyMerge Strategy = "merge"

	// StrategyOurs takes the local side verbatim.
	StrategyOurs Strategy = "ours"

	// StrategyTheirs takes the incoming side verbatim.
	StrategyTheirs Strategy = "theirs"

	// StrategyRewrite regenerates the file from scratch (full rewrite).
	StrategyRewrite Strategy = "rewrite"

	// StrategyInteractive defers to a human or the escalation manager.
	StrategyInteractive Strategy = "interactive"
)

// KnownStrategies lists every strategy the tracker accepts.
var KnownStrategies = []Strategy{
	StrategyMerge, StrategyOurs, StrategyTheirs, StrategyRewrite, StrategyInteractive,
}

// DefaultOrder is the recommendation order with no historical data:
// merge-based strategies first, full-rewrite strategies last.
var DefaultOrder = []Strategy{StrategyMerge, StrategyOurs, StrategyTheirs, StrategyRewrite}

// KnownContextTypes lists the context-type keys the tracker accepts.
// Unknown keys in a context map are ignored rather than erroring.
var KnownContextTypes = map[string]bool{
	"language":  true,
	"kind":      true, // merge vs rebase
	"area":      true, // repository area (src, docs, config, ...)
	"file_type": true,
}

// Stats holds per-strategy performance counters. Counters are
// monotonically non-decreasing within a process lifetime.
type Stats struct {
	Uses          int           `json:"uses"`
	Successes     int           `json:"successes"`
	Failures      int           `json:"failures"`
	TotalDuration time.Duration `json:"totalDuration"`
	MinDuration   time.Duration `json:"minDuration"`
	MaxDuration   time.Duration `json:"maxDuration"`
	FirstUsed     time.Time     `json:"firstUsed"`
	LastUsed      time.Time     `json:"lastUsed"`
}

// WinRate is the fraction of uses that succeeded.
func (s *Stats) WinRate() float64 {
	if s.Uses == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Uses)
}

// AvgDuration is the mean attempt duration.
func (s *Stats) AvgDuration() time.Duration {
	if s.Uses == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Uses)
}

// record folds one attempt into the counters.
func (s *Stats) record(success bool, duration time.Duration, now time.Time) {
	s.Uses++
	if success {
		s.Successes++
	} else {
		s.Failures++
	}
	s.TotalDuration += duration
	if s.MinDuration == 0 || duration < s.MinDuration {
		s.MinDuration = duration
	}
	if duration > s.MaxDuration {
		s.MaxDuration = duration
	}
	if s.FirstUsed.IsZero() {
		s.FirstUsed = now
	}
	s.LastUsed = now
}

// Alternative is a ranked runner-up in a recommendation.
type Alternative struct {
	Strategy   Strategy `json:"strategy"`
	WinRate    float64  `json:"winRate"`
	SampleSize int      `json:"sampleSize"`
}

// Recommendation is the tracker's answer for a new conflict.
type Recommendation struct {
	Strategy         Strategy      `json:"strategy"`
	Confidence       float64       `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	WinRate          float64       `json:"winRate"`
	SampleSize       int           `json:"sampleSize"`
	MatchingContexts []string      `json:"matchingContexts,omitempty"`
	Alternatives     []Alternative `json:"alternatives,omitempty"`
}
