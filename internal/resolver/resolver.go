package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"accord/internal/diff"
	"accord/internal/logging"
	"accord/internal/strategy"
	"accord/internal/vcs"
)

// Recommender is the slice of the strategy tracker the resolver needs.
type Recommender interface {
	Recommend(contexts map[string]string, minSampleSize int) strategy.Recommendation
	RecordAttempt(strat strategy.Strategy, contexts map[string]string, success bool, duration time.Duration) error
}

// Resolver inspects and resolves conflict state in one working tree.
// Exactly one resolution may be in flight per working tree; concurrent
// agents must operate in separate worktrees.
type Resolver struct {
	git       *vcs.Git
	validator *Validator
	tracker   Recommender
	diffs     *diff.Engine

	minSampleSize    int
	diffExcerptLimit int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTracker attaches a strategy tracker for recommendations and
// attempt recording.
func WithTracker(t Recommender) Option {
	return func(r *Resolver) { r.tracker = t }
}

// WithMinSampleSize sets the recommendation sample floor.
func WithMinSampleSize(n int) Option {
	return func(r *Resolver) { r.minSampleSize = n }
}

// WithDiffExcerptLimit caps interactive analysis diff excerpts.
func WithDiffExcerptLimit(n int) Option {
	return func(r *Resolver) { r.diffExcerptLimit = n }
}

// New creates a Resolver for the given working tree.
func New(git *vcs.Git, validator *Validator, opts ...Option) *Resolver {
	r := &Resolver{
		git:              git,
		validator:        validator,
		diffs:            diff.NewEngine(),
		minSampleSize:    3,
		diffExcerptLimit: 2000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasConflicts reports whether the repository is mid-merge or mid-rebase,
// or the index records unmerged paths.
func (r *Resolver) HasConflicts(ctx context.Context) (bool, error) {
	kind, err := r.Kind(ctx)
	if err != nil {
		return false, err
	}
	if kind != KindNone {
		return true, nil
	}
	paths, err := r.git.UnmergedPaths(ctx)
	if err != nil {
		return false, err
	}
	return len(paths) > 0, nil
}

// Kind determines whether a merge or rebase is in progress.
func (r *Resolver) Kind(ctx context.Context) (ConflictKind, error) {
	rebasing, err := r.git.RebaseInProgress(ctx)
	if err != nil {
		return KindNone, err
	}
	if rebasing {
		return KindRebase, nil
	}
	merging, err := r.git.MergeInProgress(ctx)
	if err != nil {
		return KindNone, err
	}
	if merging {
		return KindMerge, nil
	}
	return KindNone, nil
}

// ConflictedFiles returns paths with unmerged index stages.
func (r *Resolver) ConflictedFiles(ctx context.Context) ([]string, error) {
	return r.git.UnmergedPaths(ctx)
}

// ConflictInfo reads the three index stages for a path. Any stage may be
// absent for add/delete conflicts.
func (r *Resolver) ConflictInfo(ctx context.Context, path string) (*ConflictedFile, error) {
	kind, err := r.Kind(ctx)
	if err != nil {
		return nil, err
	}

	cf := &ConflictedFile{Path: path, Kind: kind}

	stages := []struct {
		stage vcs.Stage
		side  *Side
	}{
		{vcs.StageBase, &cf.Base},
		{vcs.StageOurs, &cf.Ours},
		{vcs.StageTheirs, &cf.Theirs},
	}
	for _, s := range stages {
		content, ok, err := r.git.ShowStage(ctx, path, s.stage)
		if err != nil {
			return nil, fmt.Errorf("reading stage %d of %s: %w", s.stage, path, err)
		}
		s.side.Content = content
		s.side.Present = ok
	}

	logging.ResolverDebug("conflict info for %s: kind=%s base=%v ours=%v theirs=%v",
		path, kind, cf.Base.Present, cf.Ours.Present, cf.Theirs.Present)

	return cf, nil
}

// ResolveFile applies one strategy to one conflicted path. The result is
// validated; a rejected resolution is reported with Valid=false and
// Escalate=true, never silently coerced.
func (r *Resolver) ResolveFile(ctx context.Context, path string, strat strategy.Strategy) (*ResolutionResult, error) {
	timer := logging.StartTimer(logging.CategoryResolver, "ResolveFile "+path)
	defer timer.Stop()

	info, err := r.ConflictInfo(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &ResolutionResult{Path: path, Strategy: strat}

	switch strat {
	case strategy.StrategyOurs:
		r.takeSide(result, info.Ours, "local")

	case strategy.StrategyTheirs:
		r.takeSide(result, info.Theirs, "incoming")

	case strategy.StrategyMerge:
		if err := r.threeWayMerge(ctx, info, result); err != nil {
			return nil, err
		}

	case strategy.StrategyInteractive:
		// Interactive never produces content; it returns an analysis
		// payload for a human or the escalation manager to act on.
		analysis, err := r.Analyze(ctx, info)
		if err != nil {
			return nil, err
		}
		result.Analysis = analysis
		return result, nil

	default:
		return nil, fmt.Errorf("unknown resolution strategy %q", strat)
	}

	if result.Valid {
		if err := r.validator.Validate(path, result.Content); err != nil {
			result.Valid = false
			result.Escalate = true
			result.ValidationError = err.Error()
			logging.ResolverWarn("resolution for %s rejected: %v", path, err)
		}
	}

	return result, nil
}

// takeSide takes one side's full content verbatim. An absent side cannot
// be taken textually and is escalated instead.
func (r *Resolver) takeSide(result *ResolutionResult, side Side, label string) {
	if !side.Present {
		result.Escalate = true
		result.ValidationError = fmt.Sprintf("%s side of %s is absent (add/delete conflict)", label, result.Path)
		return
	}
	result.Content = side.Content
	result.Valid = true
}

// threeWayMerge delegates line-level merging to the version-control tool.
// When any hunk conflicts the marker-bearing output is kept and the file
// is marked escalate-worthy rather than silently picking a side.
func (r *Resolver) threeWayMerge(ctx context.Context, info *ConflictedFile, result *ResolutionResult) error {
	merged, clean, err := r.git.MergeFile(ctx, info.Base.Content, info.Ours.Content, info.Theirs.Content)
	if err != nil {
		return err
	}
	result.Content = merged
	if clean {
		result.Valid = true
		return nil
	}
	result.Escalate = true
	result.ValidationError = fmt.Sprintf("three-way merge of %s left conflicting hunks", info.Path)
	logging.Resolver("merge strategy left conflicts in %s, escalating", info.Path)
	return nil
}

// Analyze builds the interactive payload: what diverged between the two
// sides and what the strategy tracker suggests.
func (r *Resolver) Analyze(ctx context.Context, info *ConflictedFile) (*Analysis, error) {
	fd := r.diffs.Compute(info.Path+" (ours)", info.Path+" (theirs)", info.Ours.Content, info.Theirs.Content)

	analysis := &Analysis{
		Path:          info.Path,
		Kind:          info.Kind,
		OursVsTheirs:  fd.Stats(),
		DiffExcerpt:   diff.Excerpt(fd.Unified(), r.diffExcerptLimit),
		BaseAvailable: info.Base.Present,
	}
	if r.tracker != nil {
		analysis.Suggested = r.tracker.Recommend(contextsFor(info), r.minSampleSize)
	}
	return analysis, nil
}

// ApplyResolution writes resolved content to the working tree and marks
// the path resolved in the index. Invalid results are a no-op.
func (r *Resolver) ApplyResolution(ctx context.Context, result *ResolutionResult) (bool, error) {
	if result == nil || !result.Valid {
		return false, nil
	}

	target := filepath.Join(r.git.Dir(), result.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return false, fmt.Errorf("preparing directory for %s: %w", result.Path, err)
	}
	if err := os.WriteFile(target, []byte(result.Content), 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", result.Path, err)
	}
	if err := r.git.Add(ctx, result.Path); err != nil {
		return false, err
	}

	logging.Resolver("applied %s resolution to %s", result.Strategy, result.Path)
	return true, nil
}

// Abort unconditionally restores the pre-conflict state. It is the
// universal safety valve and must never fail silently.
func (r *Resolver) Abort(ctx context.Context) error {
	kind, err := r.Kind(ctx)
	if err != nil {
		return err
	}
	switch kind {
	case KindMerge:
		if err := r.git.AbortMerge(ctx); err != nil {
			return fmt.Errorf("aborting merge: %w", err)
		}
	case KindRebase:
		if err := r.git.AbortRebase(ctx); err != nil {
			return fmt.Errorf("aborting rebase: %w", err)
		}
	case KindNone:
		// Nothing in progress; already clean.
	}
	logging.Resolver("aborted %s, repository restored", kind)
	return nil
}

// ResolveAll applies a strategy to every conflicted file, returning
// aggregate counts. A single file's escalation does not block the rest.
func (r *Resolver) ResolveAll(ctx context.Context, strat strategy.Strategy) (*ResolveAllResult, error) {
	paths, err := r.ConflictedFiles(ctx)
	if err != nil {
		return nil, err
	}

	out := &ResolveAllResult{Total: len(paths)}
	for _, path := range paths {
		start := time.Now()
		result, err := r.ResolveFile(ctx, path, strat)
		if err != nil {
			logging.ResolverWarn("resolving %s failed: %v", path, err)
			out.Escalated++
			r.recordAttempt(path, strat, false, time.Since(start))
			continue
		}
		if !result.Valid {
			out.Escalated++
			r.recordAttempt(path, strat, false, time.Since(start))
			continue
		}
		applied, err := r.ApplyResolution(ctx, result)
		if err != nil || !applied {
			logging.ResolverWarn("applying resolution to %s failed: %v", path, err)
			out.Escalated++
			r.recordAttempt(path, strat, false, time.Since(start))
			continue
		}
		out.Resolved++
		r.recordAttempt(path, strat, true, time.Since(start))
	}

	logging.Resolver("resolve all: %d total, %d resolved, %d escalated", out.Total, out.Resolved, out.Escalated)
	return out, nil
}

// recordAttempt feeds the outcome back into the tracker when one is attached.
func (r *Resolver) recordAttempt(path string, strat strategy.Strategy, success bool, duration time.Duration) {
	if r.tracker == nil || strat == strategy.StrategyInteractive {
		return
	}
	contexts := map[string]string{
		"language": languageOf(path),
	}
	if err := r.tracker.RecordAttempt(strat, contexts, success, duration); err != nil {
		logging.ResolverWarn("recording attempt for %s: %v", path, err)
	}
}

// contextsFor derives tracker context entries from a conflict snapshot.
func contextsFor(info *ConflictedFile) map[string]string {
	return map[string]string{
		"language": languageOf(info.Path),
		"kind":     info.Kind.String(),
	}
}

// languageOf maps a path to a tracker language value.
func languageOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".md":
		return "markdown"
	case ".json", ".yaml", ".yml", ".toml":
		return "config"
	default:
		return "other"
	}
}
