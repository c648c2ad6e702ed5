package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"accord/internal/channel"
	"accord/internal/config"
	"accord/internal/escalation"
	"accord/internal/logging"
	"accord/internal/porter"
	"accord/internal/resolver"
	"accord/internal/strategy"
	"accord/internal/vcs"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "accord",
	Short: "accord - multi-agent repository reconciliation",
	Long: `accord reconciles competing changes from autonomous coding agents.

It resolves git-level conflicts with learned strategies, fingerprints
recurring conflict patterns, and escalates decisions automation cannot
settle to a human through a structured issue workflow.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// app bundles the wired components behind the CLI commands.
type app struct {
	cfg      *config.Config
	git      *vcs.Git
	tracker  *strategy.Tracker
	resolver *resolver.Resolver
	store    escalation.Store
	manager  *escalation.Manager
}

func buildApp() (*app, error) {
	cfg, err := config.LoadWorkspace(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	runner := vcs.NewExecRunner(cfg.GetVCSTimeout())
	git := vcs.NewGit(runner, cfg.VCS.Binary, workspace)

	tracker, err := strategy.NewTracker(resolveWorkspacePath(cfg.Strategy.StorePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open strategy store: %w", err)
	}

	res := resolver.New(git, resolver.NewValidator(cfg.Resolver.SyntaxValidation),
		resolver.WithTracker(tracker),
		resolver.WithMinSampleSize(cfg.Resolver.MinSampleSize),
		resolver.WithDiffExcerptLimit(cfg.Escalation.DiffExcerptLimit),
	)

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	primary := buildChannel(cfg, runner)
	manager := escalation.NewManager(store, primary,
		escalation.WithPorter(porter.New(git, runner)),
		escalation.WithExcerptLimit(cfg.Escalation.DiffExcerptLimit),
	)

	return &app{
		cfg:      cfg,
		git:      git,
		tracker:  tracker,
		resolver: res,
		store:    store,
		manager:  manager,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("Failed to close escalation store", zap.Error(err))
	}
}

func buildStore(cfg *config.Config) (escalation.Store, error) {
	if cfg.Escalation.Backend == "sqlite" {
		store, err := escalation.NewSQLiteStore(resolveWorkspacePath(cfg.Escalation.DatabasePath))
		if err != nil {
			return nil, fmt.Errorf("failed to open escalation store: %w", err)
		}
		return store, nil
	}
	return escalation.NewMemoryStore(), nil
}

func buildChannel(cfg *config.Config, runner vcs.Runner) channel.Channel {
	if cfg.Channels.Primary == "github" {
		return channel.NewGitHubChannel(runner, cfg.Channels.GitHub.Binary, cfg.Channels.GitHub.Repo, workspace)
	}
	return channel.NewConsoleChannel(os.Stdout)
}

func resolveWorkspacePath(p string) string {
	if p == "" || workspace == "" || os.IsPathSeparator(p[0]) {
		return p
	}
	return workspace + string(os.PathSeparator) + p
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "repo", "r", ".", "Repository working directory")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(escalationsCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
