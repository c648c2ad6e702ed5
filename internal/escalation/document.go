package escalation

import (
	"fmt"
	"strings"

	"accord/internal/channel"
	"accord/internal/diff"
)

const escalationLabel = "agent-escalation"

// timeEstimate gives the reader a rough cost of deciding, by tier.
func timeEstimate(p Priority) string {
	switch p {
	case PriorityCritical:
		return "~10 minutes, needed within 24 hours"
	case PriorityHigh:
		return "~10 minutes, needed within 48 hours"
	case PriorityLow:
		return "~5 minutes, whenever convenient this week"
	default:
		return "~5 minutes, needed within 3 days"
	}
}

// renderDocument produces the decision request posted to the channel.
// Section order is fixed so responses and tooling can rely on it.
func renderDocument(esc *Escalation, failure *ResolutionFailure, excerptLimit int) channel.Message {
	var b strings.Builder

	fmt.Fprintf(&b, "**Decision needed** (%s)\n\n", timeEstimate(esc.Priority))

	b.WriteString("## What Happened\n\n")
	if failure != nil && failure.Reason != "" {
		fmt.Fprintf(&b, "%s\n\n", failure.Reason)
	} else {
		b.WriteString("Automated conflict resolution could not settle on a single version.\n\n")
	}
	fmt.Fprintf(&b, "%d candidate resolution(s) were produced and need a human pick.\n\n", len(esc.Candidates))

	b.WriteString("## Your Options\n\n")
	for _, opt := range esc.Options {
		marker := ""
		if opt.Recommended {
			marker = " ⭐ (recommended)"
		}
		fmt.Fprintf(&b, "### Option %s: %s%s\n\n", opt.ID, opt.Title, marker)
		fmt.Fprintf(&b, "%s\n\n", opt.Description)
		if len(opt.Tradeoffs) > 0 {
			b.WriteString("Tradeoffs:\n")
			for _, t := range opt.Tradeoffs {
				fmt.Fprintf(&b, "- %s\n", t)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Risk: %s\n\n", opt.Risk)
	}

	if rec := esc.RecommendedOrBest(); rec != nil {
		b.WriteString("## My Recommendation\n\n")
		fmt.Fprintf(&b, "Option %s — %s (%.0f%% confidence)\n\n", rec.ID, rec.Title, esc.Confidence*100)
	}

	b.WriteString("## How to Respond\n\n")
	b.WriteString("Reply with one of:\n")
	b.WriteString("- A single option letter (e.g. `A`)\n")
	b.WriteString("- `explain` for more technical detail\n")
	b.WriteString("- `custom: <your preference>` to describe a different outcome\n\n")

	b.WriteString("<details>\n<summary>Technical details</summary>\n\n")
	b.WriteString(technicalDetails(esc, failure, excerptLimit))
	b.WriteString("\n</details>\n")

	return channel.Message{
		Title:  documentTitle(esc, failure),
		Body:   b.String(),
		Labels: documentLabels(esc),
	}
}

func documentTitle(esc *Escalation, failure *ResolutionFailure) string {
	subject := "conflicting changes"
	if failure != nil && len(failure.FilesInvolved) > 0 {
		subject = failure.FilesInvolved[0]
		if len(failure.FilesInvolved) > 1 {
			subject += fmt.Sprintf(" (+%d more)", len(failure.FilesInvolved)-1)
		}
	}
	return fmt.Sprintf("[%s] Decision needed: %s", strings.ToUpper(string(esc.Priority)), subject)
}

// technicalDetails renders the collapsible payload: involved files, a
// capped diff excerpt, and a per-candidate verification table.
func technicalDetails(esc *Escalation, failure *ResolutionFailure, excerptLimit int) string {
	var b strings.Builder

	if failure != nil {
		if len(failure.FilesInvolved) > 0 {
			b.WriteString("Files involved:\n")
			for _, f := range failure.FilesInvolved {
				fmt.Fprintf(&b, "- `%s`\n", f)
			}
			b.WriteString("\n")
		}
		if failure.Diff != "" {
			b.WriteString("```diff\n")
			b.WriteString(diff.Excerpt(failure.Diff, excerptLimit))
			b.WriteString("\n```\n\n")
		}
	}

	if len(esc.Candidates) > 0 {
		b.WriteString("| Candidate | Strategy | Build | Tests | Lint | Score |\n")
		b.WriteString("|-----------|----------|-------|-------|------|-------|\n")
		for _, c := range esc.Candidates {
			build := "pass"
			if !c.BuildPassed {
				build = "FAIL"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %d/%d | %.1f | %.2f |\n",
				c.ID, c.Strategy, build, c.TestsPassed, c.TestsPassed+c.TestsFailed, c.LintScore, c.Score)
		}
	}
	return b.String()
}

// renderNotice wraps a short notification body for channels that have
// no thread to comment on.
func renderNotice(esc *Escalation, body string) channel.Message {
	return channel.Message{
		Title:  fmt.Sprintf("[%s] Escalation %s", strings.ToUpper(string(esc.Priority)), esc.ID),
		Body:   body,
		Labels: documentLabels(esc),
	}
}

// documentLabels returns the fixed tag, a priority tag, and up to
// three trigger tags.
func documentLabels(esc *Escalation) []string {
	labels := []string{escalationLabel, "priority:" + string(esc.Priority)}
	for i, t := range esc.Triggers {
		if i >= 3 {
			break
		}
		labels = append(labels, "trigger:"+strings.ReplaceAll(string(t), "_", "-"))
	}
	return labels
}
