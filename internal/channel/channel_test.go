package channel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"accord/internal/vcs"
)

// recordRunner captures commands and replays a fixed result.
type recordRunner struct {
	res   vcs.Result
	calls []vcs.Command
}

func (r *recordRunner) Run(_ context.Context, cmd vcs.Command) (vcs.Result, error) {
	r.calls = append(r.calls, cmd)
	return r.res, nil
}

func TestGitHubChannel_PostBuildsArgv(t *testing.T) {
	runner := &recordRunner{res: vcs.Result{ExitCode: 0, Stdout: "https://github.com/example/repo/issues/42\n"}}
	ch := NewGitHubChannel(runner, "gh", "example/repo", "/work")

	ref, err := ch.Post(context.Background(), Message{
		Title:  "Decision needed",
		Body:   "body text",
		Labels: []string{"escalation", "priority:high"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "https://github.com/example/repo/issues/42" {
		t.Errorf("ref = %q", ref)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("calls = %d", len(runner.calls))
	}
	call := runner.calls[0]
	if call.Binary != "gh" {
		t.Errorf("binary = %s", call.Binary)
	}
	joined := strings.Join(call.Args, " ")
	for _, want := range []string{"issue create", "--title Decision needed", "--label escalation", "--label priority:high", "--repo example/repo"} {
		if !strings.Contains(joined, want) {
			t.Errorf("argv missing %q: %s", want, joined)
		}
	}
}

func TestGitHubChannel_PostFailure(t *testing.T) {
	runner := &recordRunner{res: vcs.Result{ExitCode: 1, Stderr: "gh: auth required"}}
	ch := NewGitHubChannel(runner, "gh", "", "")

	_, err := ch.Post(context.Background(), Message{Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("expected error on non-zero gh exit")
	}
}

func TestGitHubChannel_CommentAndClose(t *testing.T) {
	runner := &recordRunner{res: vcs.Result{ExitCode: 0}}
	ch := NewGitHubChannel(runner, "", "", "")

	if err := ch.Comment(context.Background(), "42", "reminder"); err != nil {
		t.Fatal(err)
	}
	if err := ch.Close(context.Background(), "42"); err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(runner.calls[0].Args, " "); got != "issue comment 42 --body reminder" {
		t.Errorf("comment argv = %q", got)
	}
	if got := strings.Join(runner.calls[1].Args, " "); got != "issue close 42" {
		t.Errorf("close argv = %q", got)
	}
}

func TestConsoleChannel_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ch := NewConsoleChannel(&buf)

	ref, err := ch.Post(context.Background(), Message{Title: "title", Body: "the body", Labels: []string{"escalation"}})
	if err != nil {
		t.Fatal(err)
	}
	if ref == "" {
		t.Error("expected synthetic reference")
	}
	if err := ch.Comment(context.Background(), ref, "ping"); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "the body") || !strings.Contains(out, "ping") {
		t.Errorf("console output missing content: %s", out)
	}

	// References are distinct across posts
	ref2, _ := ch.Post(context.Background(), Message{Title: "x", Body: "y"})
	if ref2 == ref {
		t.Error("expected distinct references")
	}
}
