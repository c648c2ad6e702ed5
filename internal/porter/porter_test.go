package porter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"accord/internal/escalation"
	"accord/internal/vcs"
)

// scriptRunner replays canned results keyed by command-line prefix.
// Unmatched commands succeed with empty output.
type scriptRunner struct {
	results map[string]vcs.Result
	calls   []string
}

func (s *scriptRunner) Run(_ context.Context, cmd vcs.Command) (vcs.Result, error) {
	key := strings.TrimSpace(cmd.Binary + " " + strings.Join(cmd.Args, " "))
	s.calls = append(s.calls, key)
	for prefix, res := range s.results {
		if strings.HasPrefix(key, prefix) {
			return res, nil
		}
	}
	return vcs.Result{ExitCode: 0}, nil
}

func (s *scriptRunner) called(prefix string) bool {
	for _, c := range s.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func TestIdentifyUniqueFeatures(t *testing.T) {
	winner := escalation.Candidate{
		ID:            "w",
		ModifiedFiles: []string{"internal/api/client.go", "internal/api/retry.go"},
	}
	loser := escalation.Candidate{
		ID: "l",
		ModifiedFiles: []string{
			"internal/api/client.go",       // winner touched it
			"internal/api/backoff.go",      // unique, portable
			"internal/api/backoff_test.go", // test file
			"spec/api.md",                  // spec path
			"config.yaml",                  // config file
			".golangci.yml",                // dotfile
			"docs/backoff.md",              // unique, portable
		},
	}

	got := IdentifyUniqueFeatures(winner, loser)
	want := []string{"internal/api/backoff.go", "docs/backoff.md"}
	if len(got) != len(want) {
		t.Fatalf("unique = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("unique[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestIdentifyUniqueFeatures_NothingUnique(t *testing.T) {
	winner := escalation.Candidate{ModifiedFiles: []string{"a.go", "b.go"}}
	loser := escalation.Candidate{ModifiedFiles: []string{"a.go"}}
	if got := IdentifyUniqueFeatures(winner, loser); len(got) != 0 {
		t.Errorf("unique = %v", got)
	}
}

func newTestPorter(t *testing.T, sr *scriptRunner) *Porter {
	t.Helper()
	dir := t.TempDir()
	git := vcs.NewGit(sr, "git", dir)
	return New(git, sr)
}

func TestPortOne_CopiesCommitsAndVerifies(t *testing.T) {
	sr := &scriptRunner{results: map[string]vcs.Result{
		"git show agent/beta:lib/backoff.go": {ExitCode: 0, Stdout: "package lib\n"},
	}}
	p := newTestPorter(t, sr)

	winner := escalation.Candidate{ID: "w", Branch: "agent/alpha", ModifiedFiles: []string{"lib/client.go"}}
	loser := escalation.Candidate{ID: "l", Branch: "agent/beta", ModifiedFiles: []string{"lib/backoff.go"}}

	port := p.PortOne(context.Background(), winner, loser)
	if !port.Success {
		t.Fatalf("port failed: %s", port.Error)
	}
	if len(port.Files) != 1 || port.Files[0] != "lib/backoff.go" {
		t.Errorf("files = %v", port.Files)
	}

	// File landed in the working tree with the branch content.
	data, err := os.ReadFile(filepath.Join(p.git.Dir(), "lib/backoff.go"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "package lib\n" {
		t.Errorf("content = %q", data)
	}

	for _, step := range []string{"git add lib/backoff.go", "git commit -m", "go build ./..."} {
		if !sr.called(step) {
			t.Errorf("missing step %q in %v", step, sr.calls)
		}
	}
}

func TestPortOne_RevertsOnBuildFailure(t *testing.T) {
	sr := &scriptRunner{results: map[string]vcs.Result{
		"git show agent/beta:lib/backoff.go": {ExitCode: 0, Stdout: "package lib\n"},
		"go build":                           {ExitCode: 2, Stderr: "undefined: Backoff"},
	}}
	p := newTestPorter(t, sr)

	winner := escalation.Candidate{ID: "w", Branch: "agent/alpha"}
	loser := escalation.Candidate{ID: "l", Branch: "agent/beta", ModifiedFiles: []string{"lib/backoff.go"}}

	port := p.PortOne(context.Background(), winner, loser)
	if port.Success {
		t.Fatal("expected failed port")
	}
	if !strings.Contains(port.Error, "reverted") {
		t.Errorf("error = %s", port.Error)
	}
	if !sr.called("git reset --hard HEAD~1") {
		t.Errorf("revert missing: %v", sr.calls)
	}
}

func TestPortOne_NothingToPort(t *testing.T) {
	sr := &scriptRunner{}
	p := newTestPorter(t, sr)

	winner := escalation.Candidate{ID: "w", ModifiedFiles: []string{"a.go"}}
	loser := escalation.Candidate{ID: "l", ModifiedFiles: []string{"a.go"}}

	port := p.PortOne(context.Background(), winner, loser)
	if !port.Success || len(port.Files) != 0 {
		t.Errorf("port = %+v", port)
	}
	if sr.called("git commit") {
		t.Error("unexpected commit")
	}
}

func TestPort_ContinuesPastFailingLoser(t *testing.T) {
	sr := &scriptRunner{results: map[string]vcs.Result{
		"git show bad:x.go":  {ExitCode: 128, Stderr: "fatal: path not found"},
		"git show good:y.go": {ExitCode: 0, Stdout: "package y\n"},
	}}
	p := newTestPorter(t, sr)

	winner := escalation.Candidate{ID: "w", Branch: "agent/alpha"}
	losers := []escalation.Candidate{
		{ID: "l1", Branch: "bad", ModifiedFiles: []string{"x.go"}},
		{ID: "l2", Branch: "good", ModifiedFiles: []string{"y.go"}},
	}

	err := p.Port(context.Background(), winner, losers)
	if err == nil {
		t.Fatal("expected error from failing loser")
	}
	// The second loser was still ported.
	if _, statErr := os.Stat(filepath.Join(p.git.Dir(), "y.go")); statErr != nil {
		t.Errorf("second port skipped: %v", statErr)
	}
}
