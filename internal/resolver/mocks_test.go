package resolver

import (
	"context"
	"strings"
	"time"

	"accord/internal/strategy"
	"accord/internal/vcs"
)

// scriptRunner replays canned results keyed by the joined argument string.
// Tests mutate the script between steps to model state changes.
type scriptRunner struct {
	results map[string]vcs.Result
	calls   []vcs.Command
}

func newScriptRunner() *scriptRunner {
	return &scriptRunner{results: make(map[string]vcs.Result)}
}

func (s *scriptRunner) on(args string, res vcs.Result) {
	s.results[args] = res
}

func (s *scriptRunner) Run(_ context.Context, cmd vcs.Command) (vcs.Result, error) {
	s.calls = append(s.calls, cmd)
	key := strings.Join(cmd.Args, " ")
	if res, ok := s.results[key]; ok {
		return res, nil
	}
	for k, res := range s.results {
		if strings.HasPrefix(key, k) {
			return res, nil
		}
	}
	return vcs.Result{ExitCode: 1, Stderr: "unscripted: " + key}, nil
}

// scriptMergeState wires the command responses for an in-progress merge
// with the given unmerged paths and stage contents.
func scriptMergeState(sr *scriptRunner, stages map[string][3]string) {
	sr.on("rev-parse --git-path rebase-merge", vcs.Result{ExitCode: 0, Stdout: ".git/no-such-rebase-merge\n"})
	sr.on("rev-parse --git-path rebase-apply", vcs.Result{ExitCode: 0, Stdout: ".git/no-such-rebase-apply\n"})
	sr.on("rev-parse -q --verify MERGE_HEAD", vcs.Result{ExitCode: 0, Stdout: "abc123\n"})

	var lines []string
	for path, contents := range stages {
		for i, content := range contents {
			stage := i + 1
			if content == "" {
				sr.on("show :"+string(rune('0'+stage))+":"+path, vcs.Result{ExitCode: 128, Stderr: "fatal: path '" + path + "' does not exist in 'the index'"})
				continue
			}
			sr.on("show :"+string(rune('0'+stage))+":"+path, vcs.Result{ExitCode: 0, Stdout: content})
		}
		lines = append(lines,
			"100644 111 1\t"+path,
			"100644 222 2\t"+path,
			"100644 333 3\t"+path,
		)
	}
	sr.on("ls-files -u", vcs.Result{ExitCode: 0, Stdout: strings.Join(lines, "\n") + "\n"})
}

// fakeTracker records calls and returns a fixed recommendation.
type fakeTracker struct {
	rec      strategy.Recommendation
	attempts []recordedAttempt
}

type recordedAttempt struct {
	strategy strategy.Strategy
	success  bool
	contexts map[string]string
}

func (f *fakeTracker) Recommend(_ map[string]string, _ int) strategy.Recommendation {
	return f.rec
}

func (f *fakeTracker) RecordAttempt(strat strategy.Strategy, contexts map[string]string, success bool, _ time.Duration) error {
	f.attempts = append(f.attempts, recordedAttempt{strategy: strat, success: success, contexts: contexts})
	return nil
}
