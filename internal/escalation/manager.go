package escalation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"accord/internal/channel"
	"accord/internal/logging"
	"accord/internal/pattern"
)

// largeChangeThreshold is the involved-file count above which a
// failure is flagged as a large change.
const largeChangeThreshold = 10

// Porter transplants unique files from losing candidates into the
// winning one after a decision. Declared here so the manager does not
// depend on the porter package.
type Porter interface {
	Port(ctx context.Context, winner Candidate, losers []Candidate) error
}

// Manager drives the escalation lifecycle: creation, publishing,
// response handling, and SLA timeouts.
type Manager struct {
	store        Store
	primary      channel.Channel
	channels     map[string]channel.Channel
	porter       Porter
	hasher       *pattern.Hasher
	excerptLimit int
	now          func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPorter attaches a feature porter, invoked when a winner is chosen.
func WithPorter(p Porter) ManagerOption {
	return func(m *Manager) { m.porter = p }
}

// WithExtraChannel registers a named secondary notification channel.
func WithExtraChannel(name string, ch channel.Channel) ManagerOption {
	return func(m *Manager) { m.channels[name] = ch }
}

// WithExcerptLimit caps diff excerpts in rendered documents.
func WithExcerptLimit(n int) ManagerOption {
	return func(m *Manager) { m.excerptLimit = n }
}

func withClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, primary channel.Channel, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:        store,
		primary:      primary,
		channels:     map[string]channel.Channel{"issue": primary},
		hasher:       pattern.NewHasher(),
		excerptLimit: 2000,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateEscalation builds and publishes a decision request from a
// failed resolution. The record is persisted before publishing; if the
// channel rejects the post the escalation is still stored and the
// returned error wraps ErrPublish so the caller can schedule a retry.
func (m *Manager) CreateEscalation(ctx context.Context, failure *ResolutionFailure, signals *DetectionSignals, intent *IntentAnalysis) (*Escalation, error) {
	timer := logging.StartTimer(logging.CategoryEscalation, "CreateEscalation")
	defer timer.Stop()

	triggers := deriveTriggers(failure, signals)
	priority := derivePriority(triggers, signals)
	options, recommended, confidence := buildOptions(failure.Candidates)

	esc := &Escalation{
		ID:                uuid.NewString(),
		CreatedAt:         m.now().UTC(),
		Triggers:          triggers,
		Priority:          priority,
		Status:            StatusPending,
		Candidates:        failure.Candidates,
		Options:           options,
		RecommendedOption: recommended,
		Confidence:        confidence,
		TechnicalDetails:  technicalDetails(&Escalation{Candidates: failure.Candidates}, failure, m.excerptLimit),
		PatternHash:       m.fingerprint(failure, intent),
	}

	if err := m.store.Create(esc); err != nil {
		return nil, fmt.Errorf("failed to persist escalation: %w", err)
	}
	logging.Escalation("Created escalation %s priority=%s triggers=%v options=%d",
		esc.ID, esc.Priority, esc.Triggers, len(esc.Options))

	msg := renderDocument(esc, failure, m.excerptLimit)
	ref, err := m.primary.Post(ctx, msg)
	if err != nil {
		logging.EscalationWarn("Publish failed for escalation %s via %s: %v", esc.ID, m.primary.Name(), err)
		return esc, fmt.Errorf("escalation %s stored but unpublished: %w: %v", esc.ID, ErrPublish, err)
	}
	esc.IssueRef = ref
	if err := m.store.Update(esc); err != nil {
		return esc, fmt.Errorf("failed to record issue reference: %w", err)
	}
	logging.Escalation("Published escalation %s to %s as %s", esc.ID, m.primary.Name(), ref)
	return esc, nil
}

func (m *Manager) fingerprint(failure *ResolutionFailure, intent *IntentAnalysis) string {
	var intents []string
	if intent != nil {
		intents = intent.Intents
	}
	return m.hasher.ComputeHash(failure.Kind, failure.FilesInvolved, intents)
}

// Get returns one escalation by id.
func (m *Manager) Get(id string) (*Escalation, error) {
	return m.store.Get(id)
}

// List returns escalations, optionally filtered by status.
func (m *Manager) List(statuses ...Status) ([]*Escalation, error) {
	return m.store.List(statuses...)
}

// ProcessResponse interprets a human reply and advances the state
// machine. Replies to terminal escalations are rejected.
func (m *Manager) ProcessResponse(ctx context.Context, id, text string) (*Escalation, error) {
	esc, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if esc.Status.Terminal() {
		return esc, fmt.Errorf("escalation %s is already %s", id, esc.Status)
	}

	parsed := parseResponse(text, esc.Options)
	esc.ResponseText = text
	esc.ResponseAt = m.now().UTC()

	switch parsed.Kind {
	case ResponseChoice:
		return m.resolveWithChoice(ctx, esc, parsed.OptionID)

	case ResponseExplain:
		esc.Status = StatusAwaitingInfo
		if err := m.store.Update(esc); err != nil {
			return nil, err
		}
		m.comment(ctx, esc, esc.TechnicalDetails)
		logging.Escalation("Escalation %s awaiting info (explain requested)", esc.ID)
		return esc, nil

	case ResponseCustom:
		esc.Status = StatusAwaitingInfo
		if err := m.store.Update(esc); err != nil {
			return nil, err
		}
		m.comment(ctx, esc, fmt.Sprintf(
			"Noted your preference: %q. A custom resolution needs manual follow-up; the listed options remain open in the meantime.",
			parsed.CustomText))
		logging.Escalation("Escalation %s awaiting info (custom preference)", esc.ID)
		return esc, nil

	default:
		if err := m.store.Update(esc); err != nil {
			return nil, err
		}
		m.comment(ctx, esc,
			"I couldn't match that reply to an option. Please answer with a single option letter, `explain`, or `custom: <your preference>`.")
		logging.EscalationWarn("Unclear response on escalation %s: %q", esc.ID, text)
		return esc, nil
	}
}

func (m *Manager) resolveWithChoice(ctx context.Context, esc *Escalation, optionID string) (*Escalation, error) {
	esc.Status = StatusResolved
	esc.ChosenOption = optionID
	if err := m.store.Update(esc); err != nil {
		return nil, err
	}
	logging.Escalation("Escalation %s resolved with option %s", esc.ID, optionID)

	m.comment(ctx, esc, fmt.Sprintf("Option %s selected. Proceeding with that resolution.", optionID))
	m.closeIssue(ctx, esc)
	m.portRejected(ctx, esc, optionID)
	return esc, nil
}

// portRejected hands the losing candidates to the porter so uniquely
// valuable files are carried over into the winner.
func (m *Manager) portRejected(ctx context.Context, esc *Escalation, winnerOption string) {
	if m.porter == nil {
		return
	}
	var winner *Candidate
	var losers []Candidate
	for _, opt := range esc.Options {
		cand := esc.candidateByID(opt.CandidateID)
		if cand == nil {
			continue
		}
		if opt.ID == winnerOption {
			winner = cand
		} else {
			losers = append(losers, *cand)
		}
	}
	if winner == nil || len(losers) == 0 {
		return
	}
	if err := m.porter.Port(ctx, *winner, losers); err != nil {
		logging.EscalationWarn("Feature port after escalation %s failed: %v", esc.ID, err)
	}
}

func (m *Manager) comment(ctx context.Context, esc *Escalation, body string) {
	if esc.IssueRef == "" {
		return
	}
	if err := m.primary.Comment(ctx, esc.IssueRef, body); err != nil {
		logging.EscalationWarn("Comment on %s failed: %v", esc.IssueRef, err)
	}
}

func (m *Manager) closeIssue(ctx context.Context, esc *Escalation) {
	if esc.IssueRef == "" {
		return
	}
	if err := m.primary.Close(ctx, esc.IssueRef); err != nil {
		logging.EscalationWarn("Close of %s failed: %v", esc.IssueRef, err)
	}
}

// deriveTriggers inspects the failure reason text, the detection risk
// flags, and structural thresholds.
func deriveTriggers(failure *ResolutionFailure, signals *DetectionSignals) []Trigger {
	set := map[Trigger]bool{}
	reason := ""
	if failure != nil {
		reason = strings.ToLower(failure.Reason)
	}

	for _, probe := range []struct {
		trigger Trigger
		words   []string
	}{
		{TriggerSecuritySensitive, []string{"security", "vulnerab", "crypto", "secret"}},
		{TriggerPaymentSensitive, []string{"payment", "billing", "invoice"}},
		{TriggerAuthSensitive, []string{"auth", "login", "session", "permission"}},
		{TriggerDBMigration, []string{"migration", "schema change"}},
		{TriggerPublicAPI, []string{"public api", "breaking change", "api contract"}},
		{TriggerCandidatesTooSimilar, []string{"too similar", "near-identical"}},
		{TriggerDifferentTradeoffs, []string{"tradeoff", "trade-off"}},
	} {
		for _, w := range probe.words {
			if strings.Contains(reason, w) {
				set[probe.trigger] = true
				break
			}
		}
	}

	if signals != nil {
		if signals.SecuritySensitive {
			set[TriggerSecuritySensitive] = true
		}
		if signals.PaymentSensitive {
			set[TriggerPaymentSensitive] = true
		}
		if signals.AuthSensitive {
			set[TriggerAuthSensitive] = true
		}
		if signals.DBMigration {
			set[TriggerDBMigration] = true
		}
		if signals.PublicAPI {
			set[TriggerPublicAPI] = true
		}
	}

	if failure != nil && len(failure.FilesInvolved) > largeChangeThreshold {
		set[TriggerLargeChange] = true
	}

	if len(set) == 0 {
		set[TriggerResolutionFailed] = true
	}

	// Fixed emission order keeps labels and priority derivation stable.
	ordered := []Trigger{
		TriggerSecuritySensitive, TriggerPaymentSensitive, TriggerAuthSensitive,
		TriggerDBMigration, TriggerPublicAPI, TriggerLargeChange,
		TriggerCandidatesTooSimilar, TriggerDifferentTradeoffs, TriggerResolutionFailed,
	}
	out := make([]Trigger, 0, len(set))
	for _, t := range ordered {
		if set[t] {
			out = append(out, t)
		}
	}
	return out
}

// derivePriority maps triggers to an SLA tier. Security and payment
// outrank everything; similarity-only escalations are low urgency.
// Detection severity can raise but never lower the tier.
func derivePriority(triggers []Trigger, signals *DetectionSignals) Priority {
	has := map[Trigger]bool{}
	for _, t := range triggers {
		has[t] = true
	}

	priority := PriorityStandard
	switch {
	case has[TriggerSecuritySensitive] || has[TriggerPaymentSensitive]:
		priority = PriorityCritical
	case has[TriggerAuthSensitive] || has[TriggerDBMigration] || has[TriggerPublicAPI]:
		priority = PriorityHigh
	case onlySoftTriggers(has):
		priority = PriorityLow
	}

	if signals != nil {
		switch strings.ToLower(signals.Severity) {
		case "critical":
			priority = PriorityCritical
		case "high":
			if priority != PriorityCritical {
				priority = PriorityHigh
			}
		}
	}
	return priority
}

func onlySoftTriggers(has map[Trigger]bool) bool {
	if len(has) == 0 {
		return false
	}
	for t := range has {
		if t != TriggerCandidatesTooSimilar && t != TriggerDifferentTradeoffs {
			return false
		}
	}
	return true
}
