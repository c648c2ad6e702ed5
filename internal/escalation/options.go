package escalation

import (
	"fmt"
	"sort"
	"strings"
)

const maxOptions = 4

// closeRaceMargin is the score gap under which the runner-up is
// considered a close race and confidence is discounted.
const (
	closeRaceMargin     = 0.1
	closeRaceDiscount   = 0.15
	lintAcceptableFloor = 7.0
)

var optionLetters = []string{"A", "B", "C", "D"}

// buildOptions turns the candidate set into at most four lettered
// options, best score first. The best-scoring option is marked
// recommended. Returns the options, the recommended option id, and the
// recommendation confidence.
func buildOptions(candidates []Candidate) ([]Option, string, float64) {
	if len(candidates) == 0 {
		return nil, "", 0
	}

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].ID < ranked[j].ID
		}
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > maxOptions {
		ranked = ranked[:maxOptions]
	}

	options := make([]Option, 0, len(ranked))
	for i, cand := range ranked {
		options = append(options, Option{
			ID:          optionLetters[i],
			Title:       optionTitle(cand),
			Description: optionDescription(cand),
			Tradeoffs:   optionTradeoffs(cand),
			Risk:        optionRisk(cand),
			Recommended: i == 0,
			CandidateID: cand.ID,
		})
	}

	confidence := ranked[0].Score
	if len(ranked) > 1 && ranked[0].Score-ranked[1].Score < closeRaceMargin {
		confidence -= closeRaceDiscount
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return options, options[0].ID, confidence
}

func optionTitle(c Candidate) string {
	label := c.Strategy
	if label == "" {
		label = "candidate"
	}
	if c.Branch != "" {
		return fmt.Sprintf("Take the %s resolution from %s", label, c.Branch)
	}
	return fmt.Sprintf("Take the %s resolution", label)
}

func optionDescription(c Candidate) string {
	var parts []string
	if c.BuildPassed {
		parts = append(parts, "builds cleanly")
	} else {
		parts = append(parts, "does not build")
	}
	total := c.TestsPassed + c.TestsFailed
	if total > 0 {
		parts = append(parts, fmt.Sprintf("passes %d of %d tests", c.TestsPassed, total))
	} else {
		parts = append(parts, "has no test results")
	}
	parts = append(parts, fmt.Sprintf("lint score %.1f/10", c.LintScore))
	desc := fmt.Sprintf("This version %s.", strings.Join(parts, ", "))
	if n := len(c.ModifiedFiles); n > 0 {
		desc += fmt.Sprintf(" It touches %d file(s).", n)
	}
	return desc
}

func optionTradeoffs(c Candidate) []string {
	var out []string
	if !c.BuildPassed {
		out = append(out, "Requires fixing the build before it can land")
	}
	if c.TestsFailed > 0 {
		out = append(out, fmt.Sprintf("%d failing test(s) need attention", c.TestsFailed))
	}
	if c.LintScore > 0 && c.LintScore < lintAcceptableFloor {
		out = append(out, fmt.Sprintf("Lint score %.1f is below the accepted floor", c.LintScore))
	}
	if len(c.ModifiedFiles) > 20 {
		out = append(out, fmt.Sprintf("Large footprint: %d files modified", len(c.ModifiedFiles)))
	}
	if len(out) == 0 {
		out = append(out, "No significant drawbacks identified")
	}
	return out
}

func optionRisk(c Candidate) RiskTier {
	if !c.BuildPassed || c.TestsFailed > 3 {
		return RiskHigh
	}
	if c.TestsFailed > 0 || (c.LintScore > 0 && c.LintScore < lintAcceptableFloor) {
		return RiskMedium
	}
	return RiskLow
}
