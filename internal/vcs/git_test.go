package vcs

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptRunner replays canned results keyed by the joined argument string.
type scriptRunner struct {
	results map[string]Result
	calls   []Command
}

func newScriptRunner() *scriptRunner {
	return &scriptRunner{results: make(map[string]Result)}
}

func (s *scriptRunner) on(args string, res Result) {
	s.results[args] = res
}

func (s *scriptRunner) Run(_ context.Context, cmd Command) (Result, error) {
	s.calls = append(s.calls, cmd)
	key := strings.Join(cmd.Args, " ")
	if res, ok := s.results[key]; ok {
		return res, nil
	}
	// Prefix match lets tests script commands with temp-file path suffixes
	for k, res := range s.results {
		if strings.HasPrefix(key, k) {
			return res, nil
		}
	}
	return Result{ExitCode: 1, Stderr: "unscripted: " + key}, nil
}

func TestMergeInProgress(t *testing.T) {
	sr := newScriptRunner()
	sr.on("rev-parse -q --verify MERGE_HEAD", Result{ExitCode: 0, Stdout: "abc123\n"})

	g := NewGit(sr, "git", "/repo")
	merging, err := g.MergeInProgress(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !merging {
		t.Error("expected merge in progress")
	}

	sr2 := newScriptRunner()
	sr2.on("rev-parse -q --verify MERGE_HEAD", Result{ExitCode: 1})
	g2 := NewGit(sr2, "git", "/repo")
	merging, err = g2.MergeInProgress(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if merging {
		t.Error("expected no merge in progress")
	}
}

func TestUnmergedPaths_DedupesStages(t *testing.T) {
	sr := newScriptRunner()
	sr.on("ls-files -u", Result{ExitCode: 0, Stdout: strings.Join([]string{
		"100644 111 1\tsrc/app.go",
		"100644 222 2\tsrc/app.go",
		"100644 333 3\tsrc/app.go",
		"100644 444 2\tREADME.md",
		"100644 555 3\tREADME.md",
		"",
	}, "\n")})

	g := NewGit(sr, "git", "/repo")
	paths, err := g.UnmergedPaths(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", paths)
	}
	if paths[0] != "src/app.go" || paths[1] != "README.md" {
		t.Errorf("paths = %v", paths)
	}
}

func TestShowStage_AbsentStage(t *testing.T) {
	sr := newScriptRunner()
	sr.on("show :2:new.go", Result{ExitCode: 0, Stdout: "package new\n"})
	sr.on("show :1:new.go", Result{ExitCode: 128, Stderr: "fatal: path 'new.go' does not exist in 'the index'"})

	g := NewGit(sr, "git", "/repo")

	content, ok, err := g.ShowStage(context.Background(), "new.go", StageOurs)
	if err != nil || !ok {
		t.Fatalf("ours stage: ok=%v err=%v", ok, err)
	}
	if content != "package new\n" {
		t.Errorf("content = %q", content)
	}

	_, ok, err = g.ShowStage(context.Background(), "new.go", StageBase)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("base stage should be reported absent, not an error")
	}
}

func TestShowStage_RepoFailureIsNotAbsence(t *testing.T) {
	sr := newScriptRunner()
	sr.on("show :2:a.go", Result{ExitCode: 128, Stderr: "fatal: not a git repository (or any of the parent directories): .git"})

	g := NewGit(sr, "git", "/repo")

	_, ok, err := g.ShowStage(context.Background(), "a.go", StageOurs)
	if err == nil {
		t.Fatal("expected error for repository failure")
	}
	if !errors.Is(err, ErrOperation) {
		t.Errorf("err = %v, want ErrOperation", err)
	}
	if ok {
		t.Error("ok should be false on failure")
	}
}

func TestMergeFile_CleanAndConflicted(t *testing.T) {
	sr := newScriptRunner()
	sr.on("merge-file -p", Result{ExitCode: 0, Stdout: "merged content\n"})

	g := NewGit(sr, "git", "/repo")
	merged, clean, err := g.MergeFile(context.Background(), "base", "ours", "theirs")
	if err != nil {
		t.Fatal(err)
	}
	if !clean {
		t.Error("expected clean merge")
	}
	if merged != "merged content\n" {
		t.Errorf("merged = %q", merged)
	}

	// One conflict: merge-file exits 1 with markers in output
	sr2 := newScriptRunner()
	sr2.on("merge-file -p", Result{ExitCode: 1, Stdout: "<<<<<<< ours\na\n=======\nb\n>>>>>>> theirs\n"})
	g2 := NewGit(sr2, "git", "/repo")
	merged, clean, err = g2.MergeFile(context.Background(), "base", "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if clean {
		t.Error("expected conflicted merge")
	}
	if !strings.Contains(merged, "<<<<<<<") {
		t.Errorf("expected markers in output, got %q", merged)
	}
}

func TestAbortMerge_SurfacesFailure(t *testing.T) {
	sr := newScriptRunner()
	sr.on("merge --abort", Result{ExitCode: 128, Stderr: "fatal: no merge to abort"})

	g := NewGit(sr, "git", "/repo")
	if err := g.AbortMerge(context.Background()); err == nil {
		t.Error("abort failure must not be silent")
	}
}

func TestDiffNameOnly(t *testing.T) {
	sr := newScriptRunner()
	sr.on("diff --name-only main feature", Result{ExitCode: 0, Stdout: "a.go\nb.go\n"})

	g := NewGit(sr, "git", "/repo")
	files, err := g.DiffNameOnly(context.Background(), "main", "feature")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[0] != "a.go" {
		t.Errorf("files = %v", files)
	}
}
