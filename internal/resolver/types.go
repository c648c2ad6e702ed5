// Package resolver inspects repository conflict state, extracts the three
// sides of a conflicted file, applies a chosen strategy, validates the
// result, and can abort back to a clean state.
package resolver

import (
	"errors"

	"accord/internal/diff"
	"accord/internal/strategy"
)

// ErrValidation marks a resolution rejected by validation: leftover
// conflict markers or syntactically invalid content. It is scoped to a
// single file and aggregated into escalated counts, never a batch abort.
var ErrValidation = errors.New("resolution validation failed")

// ConflictKind identifies what operation produced the conflict state.
type ConflictKind int

const (
	KindNone ConflictKind = iota
	KindMerge
	KindRebase
)

func (k ConflictKind) String() string {
	switch k {
	case KindMerge:
		return "merge"
	case KindRebase:
		return "rebase"
	default:
		return "none"
	}
}

// Side is one of the three versions of a conflicted file. Present is
// false for the absent stages of add/delete conflicts.
type Side struct {
	Content string
	Present bool
}

// ConflictedFile is an immutable snapshot of one conflicted path taken
// when conflict state is inspected.
type ConflictedFile struct {
	Path   string
	Kind   ConflictKind
	Base   Side // common ancestor
	Ours   Side // local side
	Theirs Side // incoming side
}

// ResolutionResult is the outcome of resolving a single file.
type ResolutionResult struct {
	Path     string
	Strategy strategy.Strategy
	Content  string

	// Valid reports whether Content passed validation. Valid is never
	// true while Content still contains conflict markers.
	Valid bool

	// ValidationError explains a rejected resolution.
	ValidationError string

	// Escalate marks results that need the escalation pipeline rather
	// than silent coercion (conflicted merge hunks, absent sides).
	Escalate bool

	// Analysis carries the interactive payload; set only for the
	// interactive strategy, which never produces content itself.
	Analysis *Analysis
}

// Analysis is what the interactive strategy hands to a human or the
// escalation manager: what diverged and what history suggests.
type Analysis struct {
	Path          string
	Kind          ConflictKind
	OursVsTheirs  diff.Stats
	DiffExcerpt   string
	Suggested     strategy.Recommendation
	BaseAvailable bool
}

// ResolveAllResult aggregates a batch resolution run.
type ResolveAllResult struct {
	Total     int
	Resolved  int
	Escalated int
}
