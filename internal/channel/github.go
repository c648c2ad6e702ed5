package channel

import (
	"context"
	"fmt"
	"strings"

	"accord/internal/logging"
	"accord/internal/vcs"
)

// GitHubChannel publishes escalations as GitHub issues through the gh
// CLI. Commands are built as argument vectors via the vcs runner, never
// concatenated shell strings.
type GitHubChannel struct {
	runner vcs.Runner
	binary string
	repo   string // owner/name; empty lets gh infer from the working directory
	dir    string
}

// NewGitHubChannel creates a gh-backed channel.
func NewGitHubChannel(runner vcs.Runner, binary, repo, dir string) *GitHubChannel {
	if binary == "" {
		binary = "gh"
	}
	return &GitHubChannel{runner: runner, binary: binary, repo: repo, dir: dir}
}

// Name identifies this channel in logs and policy lists.
func (g *GitHubChannel) Name() string { return "github" }

func (g *GitHubChannel) repoArgs() []string {
	if g.repo == "" {
		return nil
	}
	return []string{"--repo", g.repo}
}

// Post creates an issue and returns its URL as the reference.
func (g *GitHubChannel) Post(ctx context.Context, msg Message) (string, error) {
	args := []string{"issue", "create", "--title", msg.Title, "--body", msg.Body}
	for _, label := range msg.Labels {
		args = append(args, "--label", label)
	}
	args = append(args, g.repoArgs()...)

	res, err := g.runner.Run(ctx, vcs.Command{Binary: g.binary, Args: args, Dir: g.dir})
	if err != nil {
		return "", fmt.Errorf("gh issue create: %w", err)
	}
	if !res.Ok() {
		return "", fmt.Errorf("gh issue create exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	// gh prints the issue URL on the last stdout line
	ref := lastLine(res.Stdout)
	logging.Channel("posted escalation issue %s", ref)
	return ref, nil
}

// Comment adds a comment to the referenced issue.
func (g *GitHubChannel) Comment(ctx context.Context, ref, body string) error {
	args := []string{"issue", "comment", ref, "--body", body}
	args = append(args, g.repoArgs()...)

	res, err := g.runner.Run(ctx, vcs.Command{Binary: g.binary, Args: args, Dir: g.dir})
	if err != nil {
		return fmt.Errorf("gh issue comment: %w", err)
	}
	if !res.Ok() {
		return fmt.Errorf("gh issue comment exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// Close closes the referenced issue.
func (g *GitHubChannel) Close(ctx context.Context, ref string) error {
	args := []string{"issue", "close", ref}
	args = append(args, g.repoArgs()...)

	res, err := g.runner.Run(ctx, vcs.Command{Binary: g.binary, Args: args, Dir: g.dir})
	if err != nil {
		return fmt.Errorf("gh issue close: %w", err)
	}
	if !res.Ok() {
		return fmt.Errorf("gh issue close exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
