package escalation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"accord/internal/logging"
)

// TimeoutReport summarizes one CheckTimeouts sweep.
type TimeoutReport struct {
	Checked      int
	Reminded     []string
	AutoSelected []string
	TimedOut     []string
}

// CheckTimeouts sweeps open escalations against their SLA policy.
// Expired escalations on an auto-select tier move to AUTO_SELECTED with
// the recommended option; critical and high tiers move to TIMEOUT with
// an urgent notice instead. Overdue-but-not-expired escalations get a
// reminder, throttled to one per half reminder interval. The sweep is
// idempotent: terminal escalations are never touched.
func (m *Manager) CheckTimeouts(ctx context.Context) (*TimeoutReport, error) {
	timer := logging.StartTimer(logging.CategoryEscalation, "CheckTimeouts")
	defer timer.Stop()

	open, err := m.store.List(StatusPending, StatusAwaitingInfo)
	if err != nil {
		return nil, err
	}

	report := &TimeoutReport{Checked: len(open)}
	now := m.now().UTC()

	for _, esc := range open {
		policy := PolicyFor(esc.Priority)
		age := now.Sub(esc.CreatedAt)

		switch {
		case age >= policy.TimeoutAfter:
			// An auto-select tier can still lack options (escalations
			// raised without candidates); those time out instead of
			// cycling forever.
			if policy.AutoSelect && esc.RecommendedOrBest() != nil {
				if err := m.autoSelect(ctx, esc); err != nil {
					logging.EscalationWarn("Auto-select of %s failed: %v", esc.ID, err)
					continue
				}
				report.AutoSelected = append(report.AutoSelected, esc.ID)
			} else {
				if err := m.timeOut(ctx, esc, policy); err != nil {
					logging.EscalationWarn("Timeout transition of %s failed: %v", esc.ID, err)
					continue
				}
				report.TimedOut = append(report.TimedOut, esc.ID)
			}

		case age >= policy.ReminderAfter && m.reminderDue(esc, policy, now):
			m.remind(ctx, esc, policy, now)
			report.Reminded = append(report.Reminded, esc.ID)
		}
	}
	return report, nil
}

// reminderDue throttles reminders to one per half reminder interval.
func (m *Manager) reminderDue(esc *Escalation, policy TimeoutPolicy, now time.Time) bool {
	if esc.LastReminderAt.IsZero() {
		return true
	}
	return now.Sub(esc.LastReminderAt) >= policy.ReminderAfter/2
}

func (m *Manager) remind(ctx context.Context, esc *Escalation, policy TimeoutPolicy, now time.Time) {
	remaining := policy.TimeoutAfter - now.Sub(esc.CreatedAt)
	body := fmt.Sprintf("Reminder: this decision is still waiting. About %s left before the %s deadline.",
		remaining.Round(time.Hour), esc.Priority)
	if policy.AutoSelect {
		rec := esc.RecommendedOrBest()
		if rec != nil {
			body += fmt.Sprintf(" If nobody responds, option %s will be selected automatically.", rec.ID)
		}
	}

	m.notify(ctx, esc, policy.Channels, body)

	esc.RemindersSent++
	esc.LastReminderAt = now
	if err := m.store.Update(esc); err != nil {
		logging.EscalationWarn("Failed to record reminder on %s: %v", esc.ID, err)
	}
	logging.Escalation("Reminder %d sent for escalation %s", esc.RemindersSent, esc.ID)
}

func (m *Manager) autoSelect(ctx context.Context, esc *Escalation) error {
	rec := esc.RecommendedOrBest()
	if rec == nil {
		return fmt.Errorf("escalation %s has no selectable option", esc.ID)
	}
	esc.Status = StatusAutoSelected
	esc.ChosenOption = rec.ID
	if err := m.store.Update(esc); err != nil {
		return err
	}
	logging.Escalation("Escalation %s auto-selected option %s after timeout", esc.ID, rec.ID)

	m.comment(ctx, esc, fmt.Sprintf(
		"No response before the deadline, so option %s was selected automatically. Comment here if you want this overridden.", rec.ID))
	m.closeIssue(ctx, esc)
	m.portRejected(ctx, esc, rec.ID)
	return nil
}

func (m *Manager) timeOut(ctx context.Context, esc *Escalation, policy TimeoutPolicy) error {
	esc.Status = StatusTimeout
	if err := m.store.Update(esc); err != nil {
		return err
	}
	logging.EscalationWarn("Escalation %s timed out without a decision (priority=%s)", esc.ID, esc.Priority)

	m.notify(ctx, esc, policy.Channels, fmt.Sprintf(
		"URGENT: this %s-priority decision passed its deadline with no response. Nothing was selected automatically; a human must decide.", esc.Priority))
	return nil
}

// notify fans a body out to every configured channel for the tier. A
// failing channel is logged and does not block the others.
func (m *Manager) notify(ctx context.Context, esc *Escalation, names []string, body string) {
	var g errgroup.Group
	for _, name := range names {
		name := name
		ch, ok := m.channels[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			var err error
			if name == "issue" && esc.IssueRef != "" {
				err = ch.Comment(ctx, esc.IssueRef, body)
			} else {
				_, err = ch.Post(ctx, renderNotice(esc, body))
			}
			if err != nil {
				logging.EscalationWarn("Notification via %s failed for %s: %v", ch.Name(), esc.ID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
