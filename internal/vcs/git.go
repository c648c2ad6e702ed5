package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"accord/internal/logging"
)

// Stage identifies one of the three index stages of an unmerged path.
type Stage int

const (
	StageBase   Stage = 1 // common ancestor
	StageOurs   Stage = 2 // local side
	StageTheirs Stage = 3 // incoming side
)

// Git wraps a Runner with typed git operations rooted at one working tree.
type Git struct {
	runner Runner
	binary string
	dir    string
}

// NewGit creates a Git bound to the given working tree.
func NewGit(runner Runner, binary, dir string) *Git {
	if binary == "" {
		binary = "git"
	}
	return &Git{runner: runner, binary: binary, dir: dir}
}

// Dir returns the working tree this Git operates on.
func (g *Git) Dir() string { return g.dir }

func (g *Git) run(ctx context.Context, args ...string) (Result, error) {
	return g.runner.Run(ctx, Command{Binary: g.binary, Args: args, Dir: g.dir})
}

// MergeInProgress reports whether a merge is underway (MERGE_HEAD exists).
func (g *Git) MergeInProgress(ctx context.Context) (bool, error) {
	res, err := g.run(ctx, "rev-parse", "-q", "--verify", "MERGE_HEAD")
	if err != nil {
		return false, err
	}
	return res.Ok(), nil
}

// RebaseInProgress reports whether a rebase is underway by probing the
// rebase-merge and rebase-apply state directories.
func (g *Git) RebaseInProgress(ctx context.Context) (bool, error) {
	for _, marker := range []string{"rebase-merge", "rebase-apply"} {
		res, err := g.run(ctx, "rev-parse", "--git-path", marker)
		if err != nil {
			return false, err
		}
		if !res.Ok() {
			continue
		}
		path := strings.TrimSpace(res.Stdout)
		if !filepath.IsAbs(path) {
			path = filepath.Join(g.dir, path)
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return true, nil
		}
	}
	return false, nil
}

// UnmergedPaths returns paths with unmerged index stages, in index order,
// each path listed once.
func (g *Git) UnmergedPaths(ctx context.Context) ([]string, error) {
	res, err := g.run(ctx, "ls-files", "-u")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, fmt.Errorf("%w: ls-files -u exited %d: %s", ErrOperation, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	seen := make(map[string]bool)
	var paths []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line == "" {
			continue
		}
		// Format: <mode> <sha> <stage>\t<path>
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			continue
		}
		path := line[tab+1:]
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// ShowStage reads one index stage of an unmerged path. The second return
// is false when the stage is absent (added-by-us / added-by-them cases).
func (g *Git) ShowStage(ctx context.Context, path string, stage Stage) (string, bool, error) {
	res, err := g.run(ctx, "show", ":"+strconv.Itoa(int(stage))+":"+path)
	if err != nil {
		return "", false, err
	}
	if !res.Ok() {
		// Missing stage is expected for add/delete conflicts; anything
		// else (corrupt repo, bad workdir) is a real failure.
		if stageAbsent(res.Stderr) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: show :%d:%s exited %d: %s",
			ErrOperation, stage, path, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, true, nil
}

// stageAbsent recognizes git's complaints about a path missing from the
// index, as opposed to infrastructure failures.
func stageAbsent(stderr string) bool {
	for _, marker := range []string{
		"does not exist in",
		"exists on disk, but not in",
		"is in the index, but not at stage",
	} {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

// MergeFile performs a three-way textual merge of the given contents by
// delegating to `git merge-file -p`. Returns the merged text and whether
// every hunk merged cleanly; on a conflicted merge the returned text
// contains conflict markers.
func (g *Git) MergeFile(ctx context.Context, base, ours, theirs string) (string, bool, error) {
	tmpDir, err := os.MkdirTemp("", "accord-merge-*")
	if err != nil {
		return "", false, fmt.Errorf("%w: temp dir: %v", ErrOperation, err)
	}
	defer os.RemoveAll(tmpDir)

	write := func(name, content string) (string, error) {
		p := filepath.Join(tmpDir, name)
		return p, os.WriteFile(p, []byte(content), 0644)
	}
	oursPath, err := write("ours", ours)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrOperation, err)
	}
	basePath, err := write("base", base)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrOperation, err)
	}
	theirsPath, err := write("theirs", theirs)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrOperation, err)
	}

	res, err := g.runner.Run(ctx, Command{
		Binary: g.binary,
		Args: []string{"merge-file", "-p",
			"-L", "ours", "-L", "base", "-L", "theirs",
			oursPath, basePath, theirsPath},
	})
	if err != nil {
		return "", false, err
	}
	// merge-file exits with the number of conflicts; negative means error.
	if res.ExitCode < 0 {
		return "", false, fmt.Errorf("%w: merge-file: %s", ErrOperation, strings.TrimSpace(res.Stderr))
	}
	logging.VCSDebug("merge-file produced %d bytes (clean=%v)", len(res.Stdout), res.ExitCode == 0)
	return res.Stdout, res.ExitCode == 0, nil
}

// Add stages a path.
func (g *Git) Add(ctx context.Context, path string) error {
	res, err := g.run(ctx, "add", "--", path)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%w: add %s exited %d: %s", ErrOperation, path, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// AbortMerge aborts an in-progress merge.
func (g *Git) AbortMerge(ctx context.Context) error {
	res, err := g.run(ctx, "merge", "--abort")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%w: merge --abort exited %d: %s", ErrOperation, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// AbortRebase aborts an in-progress rebase.
func (g *Git) AbortRebase(ctx context.Context) error {
	res, err := g.run(ctx, "rebase", "--abort")
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%w: rebase --abort exited %d: %s", ErrOperation, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Checkout switches the working tree to a branch.
func (g *Git) Checkout(ctx context.Context, branch string) error {
	res, err := g.run(ctx, "checkout", branch)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%w: checkout %s exited %d: %s", ErrOperation, branch, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// ShowFile reads a file's content as of a branch or revision.
func (g *Git) ShowFile(ctx context.Context, rev, path string) (string, error) {
	res, err := g.run(ctx, "show", rev+":"+path)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", fmt.Errorf("%w: show %s:%s exited %d: %s", ErrOperation, rev, path, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res.Stdout, nil
}

// Commit records staged changes with the given message.
func (g *Git) Commit(ctx context.Context, message string) error {
	res, err := g.run(ctx, "commit", "-m", message)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%w: commit exited %d: %s", ErrOperation, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// ResetHard discards the working tree back to a revision.
func (g *Git) ResetHard(ctx context.Context, rev string) error {
	res, err := g.run(ctx, "reset", "--hard", rev)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return fmt.Errorf("%w: reset --hard %s exited %d: %s", ErrOperation, rev, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// DiffNameOnly lists files changed between two revisions.
func (g *Git) DiffNameOnly(ctx context.Context, from, to string) ([]string, error) {
	res, err := g.run(ctx, "diff", "--name-only", from, to)
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, fmt.Errorf("%w: diff --name-only exited %d: %s", ErrOperation, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	var files []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
