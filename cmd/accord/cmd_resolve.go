package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"accord/internal/escalation"
	"accord/internal/strategy"
)

var resolveStrategy string

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the repository's current merge or rebase conflicts",
	Long: `Resolve applies one strategy to every conflicted file.

Files the strategy cannot settle are escalated as a decision request
instead of failing the run. Exit code 0 means every file was either
resolved or cleanly escalated; a non-zero exit means the repository
state could not be handled at all.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strat, err := parseStrategy(resolveStrategy)
		if err != nil {
			return err
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := context.Background()
		result, err := a.resolver.ResolveAll(ctx, strat)
		if err != nil {
			return fmt.Errorf("resolution failed: %w", err)
		}

		logger.Info("Resolution pass complete",
			zap.Int("total", result.Total),
			zap.Int("resolved", result.Resolved),
			zap.Int("escalated", result.Escalated))
		fmt.Printf("%d conflicted file(s): %d resolved, %d escalated\n",
			result.Total, result.Resolved, result.Escalated)

		if result.Escalated > 0 {
			if err := escalateRemaining(ctx, a, strat); err != nil {
				// The conflicts themselves were handled; a publish
				// failure leaves a stored record for retry.
				logger.Warn("Escalation publish incomplete", zap.Error(err))
			}
		}
		return nil
	},
}

// parseStrategy accepts only the strategies ResolveFile can apply.
// Rewrite exists in the tracker vocabulary for upstream candidates but
// is not a selector here.
func parseStrategy(name string) (strategy.Strategy, error) {
	s := strategy.Strategy(strings.ToLower(strings.TrimSpace(name)))
	switch s {
	case strategy.StrategyOurs, strategy.StrategyTheirs, strategy.StrategyMerge, strategy.StrategyInteractive:
		return s, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want ours, theirs, merge, or interactive)", name)
}

// escalateRemaining raises one decision request covering every file the
// strategy pass left conflicted.
func escalateRemaining(ctx context.Context, a *app, strat strategy.Strategy) error {
	files, err := a.resolver.ConflictedFiles(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	kind, err := a.resolver.Kind(ctx)
	if err != nil {
		return err
	}

	failure := &escalation.ResolutionFailure{
		Reason:        fmt.Sprintf("strategy %q could not settle %d file(s)", strat, len(files)),
		Kind:          kind.String(),
		FilesInvolved: files,
	}
	esc, err := a.manager.CreateEscalation(ctx, failure, nil, nil)
	if esc != nil {
		fmt.Printf("Escalated as %s", esc.ID)
		if esc.IssueRef != "" {
			fmt.Printf(" (%s)", esc.IssueRef)
		}
		fmt.Println()
	}
	return err
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveStrategy, "strategy", "s", "merge",
		"Resolution strategy: ours, theirs, merge, or interactive")
}
