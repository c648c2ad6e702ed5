// Package porter transplants uniquely valuable files from rejected
// resolution candidates into the winning line of work. Each port is
// committed separately and reverted when the tree no longer builds.
package porter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"accord/internal/escalation"
	"accord/internal/logging"
	"accord/internal/vcs"
)

// FeaturePort records one transplant attempt from a losing candidate.
type FeaturePort struct {
	SourceCandidate string   `json:"sourceCandidate"`
	DestCandidate   string   `json:"destCandidate"`
	Description     string   `json:"description"`
	Files           []string `json:"files"`
	Success         bool     `json:"success"`
	Error           string   `json:"error,omitempty"`
}

// Porter copies unique files between branches and verifies the result
// still builds.
type Porter struct {
	git     *vcs.Git
	runner  vcs.Runner
	timeout time.Duration
}

func New(git *vcs.Git, runner vcs.Runner) *Porter {
	return &Porter{git: git, runner: runner, timeout: 5 * time.Minute}
}

// skippedPathFragments are never ported: tests and specs belong to
// their own line of work, and tool configuration rarely transplants
// cleanly.
var skippedPathFragments = []string{"test", "spec"}

var skippedFileNames = map[string]bool{
	"package.json":      true,
	"package-lock.json": true,
	"go.mod":            true,
	"go.sum":            true,
	"makefile":          true,
	"dockerfile":        true,
	"requirements.txt":  true,
	"pyproject.toml":    true,
	"tsconfig.json":     true,
	".gitignore":        true,
}

// IdentifyUniqueFeatures returns the loser's modified files that the
// winner never touched, minus test/spec/config paths.
func IdentifyUniqueFeatures(winner, loser escalation.Candidate) []string {
	touched := make(map[string]bool, len(winner.ModifiedFiles))
	for _, f := range winner.ModifiedFiles {
		touched[f] = true
	}

	var unique []string
	for _, f := range loser.ModifiedFiles {
		if touched[f] || excluded(f) {
			continue
		}
		unique = append(unique, f)
	}
	return unique
}

func excluded(path string) bool {
	lower := strings.ToLower(path)
	for _, frag := range skippedPathFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	base := filepath.Base(lower)
	if skippedFileNames[base] {
		return true
	}
	// Dotfiles and rc/config files.
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, suffix := range []string{".yml", ".yaml", ".toml", ".ini", ".cfg"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// Port implements the post-decision pass: for every losing candidate,
// copy its unique files onto the winner's branch, commit, and verify
// the build. A failed verification reverts that candidate's commit and
// moves on to the next loser.
func (p *Porter) Port(ctx context.Context, winner escalation.Candidate, losers []escalation.Candidate) error {
	timer := logging.StartTimer(logging.CategoryPorter, "Port")
	defer timer.Stop()

	if winner.Branch != "" {
		if err := p.git.Checkout(ctx, winner.Branch); err != nil {
			return fmt.Errorf("failed to check out winner %s: %w", winner.Branch, err)
		}
	}

	var firstErr error
	for _, loser := range losers {
		port := p.portOne(ctx, winner, loser)
		if !port.Success && port.Error != "" && firstErr == nil {
			firstErr = fmt.Errorf("port from %s: %s", loser.ID, port.Error)
		}
	}
	return firstErr
}

// PortOne is the single-loser entry point, exposed for callers that
// want the per-port record.
func (p *Porter) PortOne(ctx context.Context, winner, loser escalation.Candidate) FeaturePort {
	return p.portOne(ctx, winner, loser)
}

func (p *Porter) portOne(ctx context.Context, winner, loser escalation.Candidate) FeaturePort {
	port := FeaturePort{
		SourceCandidate: loser.ID,
		DestCandidate:   winner.ID,
		Description:     fmt.Sprintf("unique files from %s", loser.Branch),
	}

	files := IdentifyUniqueFeatures(winner, loser)
	if len(files) == 0 {
		logging.PorterDebug("Nothing unique to port from %s", loser.ID)
		port.Success = true
		return port
	}
	port.Files = files
	logging.Porter("Porting %d file(s) from %s to %s", len(files), loser.ID, winner.ID)

	for _, f := range files {
		if err := p.copyFromBranch(ctx, loser.Branch, f); err != nil {
			port.Error = err.Error()
			return port
		}
	}

	msg := fmt.Sprintf("Port %d unique file(s) from %s", len(files), loser.Branch)
	if err := p.git.Commit(ctx, msg); err != nil {
		port.Error = fmt.Sprintf("commit failed: %v", err)
		return port
	}

	if err := p.verifyBuild(ctx, files); err != nil {
		logging.PorterDebug("Build verification failed after porting from %s: %v", loser.ID, err)
		if revertErr := p.git.ResetHard(ctx, "HEAD~1"); revertErr != nil {
			port.Error = fmt.Sprintf("build failed (%v) and revert failed (%v)", err, revertErr)
			return port
		}
		port.Error = fmt.Sprintf("build failed, port reverted: %v", err)
		return port
	}

	port.Success = true
	logging.Porter("Ported %v from %s", files, loser.ID)
	return port
}

func (p *Porter) copyFromBranch(ctx context.Context, branch, path string) error {
	content, err := p.git.ShowFile(ctx, branch, path)
	if err != nil {
		return fmt.Errorf("failed to read %s from %s: %w", path, branch, err)
	}
	dest := filepath.Join(p.git.Dir(), path)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		return err
	}
	return p.git.Add(ctx, path)
}

// verifyBuild runs a language-appropriate build check for the ported
// files. Languages with no known check pass by default.
func (p *Porter) verifyBuild(ctx context.Context, files []string) error {
	for _, cmd := range buildCommands(files) {
		cmd.Dir = p.git.Dir()
		cmd.Timeout = p.timeout
		res, err := p.runner.Run(ctx, cmd)
		if err != nil {
			return fmt.Errorf("verification command failed to run: %w", err)
		}
		if !res.Ok() {
			detail := strings.TrimSpace(res.Stderr)
			if detail == "" {
				detail = strings.TrimSpace(res.Stdout)
			}
			return fmt.Errorf("%s exited %d: %s", cmd.String(), res.ExitCode, detail)
		}
	}
	return nil
}

func buildCommands(files []string) []vcs.Command {
	var cmds []vcs.Command
	goSeen := false
	for _, f := range files {
		switch filepath.Ext(f) {
		case ".go":
			if !goSeen {
				cmds = append(cmds, vcs.Command{Binary: "go", Args: []string{"build", "./..."}})
				goSeen = true
			}
		case ".py":
			cmds = append(cmds, vcs.Command{Binary: "python3", Args: []string{"-m", "py_compile", f}})
		case ".js", ".mjs":
			cmds = append(cmds, vcs.Command{Binary: "node", Args: []string{"--check", f}})
		}
	}
	return cmds
}
