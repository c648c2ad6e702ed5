package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"accord/internal/strategy"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learned strategy performance",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		stats := a.tracker.GlobalStats()
		if len(stats) == 0 {
			fmt.Println("No recorded attempts yet.")
			return nil
		}

		names := make([]strategy.Strategy, 0, len(stats))
		for s := range stats {
			names = append(names, s)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

		fmt.Printf("%-12s  %6s  %9s  %9s  %8s  %8s\n", "STRATEGY", "USES", "SUCCESSES", "WIN RATE", "AVG", "MAX")
		for _, name := range names {
			s := stats[name]
			fmt.Printf("%-12s  %6d  %9d  %8.1f%%  %8s  %8s\n",
				name, s.Uses, s.Successes, s.WinRate()*100,
				formatDuration(s.AvgDuration()), formatDuration(s.MaxDuration))
		}
		return nil
	},
}
