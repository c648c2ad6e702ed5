// Package escalation implements the structured human decision process for
// conflicts automation cannot settle. It derives triggers and priority
// from a failed resolution, builds plain-language options from candidate
// resolutions, publishes a decision request through a channel, parses
// free-text replies, and enforces SLA timeouts with tiered auto-select.
package escalation

import (
	"errors"
	"time"
)

// ErrPublish marks a decision-channel publish failure. The escalation
// remains valid in memory and logged for manual retry, never lost.
var ErrPublish = errors.New("decision channel publish failed")

// ErrNotFound is returned for unknown escalation IDs.
var ErrNotFound = errors.New("escalation not found")

// Trigger is a reason an escalation was raised.
type Trigger string

const (
	TriggerSecuritySensitive    Trigger = "security_sensitive"
	TriggerPaymentSensitive     Trigger = "payment_sensitive"
	TriggerAuthSensitive        Trigger = "auth_sensitive"
	TriggerDBMigration          Trigger = "db_migration"
	TriggerPublicAPI            Trigger = "public_api"
	TriggerLargeChange          Trigger = "large_change"
	TriggerCandidatesTooSimilar Trigger = "candidates_too_similar"
	TriggerDifferentTradeoffs   Trigger = "different_tradeoffs"
	TriggerResolutionFailed     Trigger = "resolution_failed"
)

// Priority is the SLA tier of an escalation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityStandard Priority = "standard"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status is the lifecycle state of an escalation.
// Transitions: PENDING -> {RESOLVED, AUTO_SELECTED, TIMEOUT} and
// PENDING <-> AWAITING_INFO. RESOLVED, AUTO_SELECTED, and TIMEOUT are
// terminal.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAwaitingInfo Status = "awaiting_info"
	StatusResolved     Status = "resolved"
	StatusAutoSelected Status = "auto_selected"
	StatusTimeout      Status = "timeout"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusResolved, StatusAutoSelected, StatusTimeout:
		return true
	}
	return false
}

// RiskTier is the plain-language risk label attached to an option.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Candidate is an upstream resolution candidate: one agent's competing
// version of the change, with its verification results.
type Candidate struct {
	ID            string   `json:"id"`
	Strategy      string   `json:"strategy"`
	Branch        string   `json:"branch"`
	BuildPassed   bool     `json:"buildPassed"`
	TestsPassed   int      `json:"testsPassed"`
	TestsFailed   int      `json:"testsFailed"`
	LintScore     float64  `json:"lintScore"` // 0-10
	Score         float64  `json:"score"`     // aggregate 0-1
	ModifiedFiles []string `json:"modifiedFiles"`
	Diff          string   `json:"diff"`
}

// ResolutionFailure describes why automated resolution gave up.
type ResolutionFailure struct {
	Reason        string   `json:"reason"`
	Kind          string   `json:"kind"` // merge or rebase
	FilesInvolved []string `json:"filesInvolved"`
	Diff          string   `json:"diff"`
	Candidates    []Candidate `json:"candidates"`
}

// DetectionSignals are optional risk flags from an external conflict
// detection pipeline.
type DetectionSignals struct {
	Severity          string `json:"severity"` // "", low, medium, high, critical
	SecuritySensitive bool   `json:"securitySensitive"`
	PaymentSensitive  bool   `json:"paymentSensitive"`
	AuthSensitive     bool   `json:"authSensitive"`
	DBMigration       bool   `json:"dbMigration"`
	PublicAPI         bool   `json:"publicAPI"`
}

// IntentAnalysis is an optional summary of what the conflicting agents
// were trying to do, used for conflict fingerprinting.
type IntentAnalysis struct {
	Intents []string `json:"intents"`
	Summary string   `json:"summary"`
}

// Option is one lettered choice (A-D) presented to the decision maker.
type Option struct {
	ID          string   `json:"id"` // "A".."D"
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tradeoffs   []string `json:"tradeoffs"`
	Risk        RiskTier `json:"risk"`
	Recommended bool     `json:"recommended"`
	CandidateID string   `json:"candidateId"`
}

// Escalation is one structured decision request.
type Escalation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Triggers []Trigger `json:"triggers"`
	Priority Priority  `json:"priority"`
	Status   Status    `json:"status"`

	Candidates []Candidate `json:"candidates"`
	Options    []Option    `json:"options"`

	RecommendedOption string  `json:"recommendedOption"`
	ChosenOption      string  `json:"chosenOption,omitempty"`
	Confidence        float64 `json:"confidence"`

	TechnicalDetails string `json:"technicalDetails"`
	PatternHash      string `json:"patternHash,omitempty"`

	// IssueRef is the external decision-channel reference; empty when
	// publishing failed and is pending manual retry.
	IssueRef string `json:"issueRef,omitempty"`

	ResponseText string    `json:"responseText,omitempty"`
	ResponseAt   time.Time `json:"responseAt,omitempty"`

	RemindersSent  int       `json:"remindersSent"`
	LastReminderAt time.Time `json:"lastReminderAt,omitempty"`
}

// RecommendedOrBest returns the recommended option, falling back to the
// option backed by the best-scored candidate.
func (e *Escalation) RecommendedOrBest() *Option {
	for i := range e.Options {
		if e.Options[i].ID == e.RecommendedOption {
			return &e.Options[i]
		}
	}
	var best *Option
	bestScore := -1.0
	for i := range e.Options {
		opt := &e.Options[i]
		if c := e.candidateByID(opt.CandidateID); c != nil && c.Score > bestScore {
			best = opt
			bestScore = c.Score
		}
	}
	return best
}

func (e *Escalation) candidateByID(id string) *Candidate {
	for i := range e.Candidates {
		if e.Candidates[i].ID == id {
			return &e.Candidates[i]
		}
	}
	return nil
}

// TimeoutPolicy is the fixed SLA for one priority tier.
type TimeoutPolicy struct {
	ReminderAfter time.Duration
	TimeoutAfter  time.Duration
	AutoSelect    bool
	Channels      []string
}

// PolicyFor returns the fixed timeout policy for a priority tier.
// Critical and high escalations are never auto-selected.
func PolicyFor(p Priority) TimeoutPolicy {
	switch p {
	case PriorityCritical:
		return TimeoutPolicy{
			ReminderAfter: 12 * time.Hour,
			TimeoutAfter:  24 * time.Hour,
			AutoSelect:    false,
			Channels:      []string{"issue", "chat", "email"},
		}
	case PriorityHigh:
		return TimeoutPolicy{
			ReminderAfter: 24 * time.Hour,
			TimeoutAfter:  48 * time.Hour,
			AutoSelect:    false,
			Channels:      []string{"issue", "chat"},
		}
	case PriorityLow:
		return TimeoutPolicy{
			ReminderAfter: 96 * time.Hour,
			TimeoutAfter:  168 * time.Hour,
			AutoSelect:    true,
			Channels:      []string{"issue"},
		}
	default: // standard
		return TimeoutPolicy{
			ReminderAfter: 36 * time.Hour,
			TimeoutAfter:  72 * time.Hour,
			AutoSelect:    true,
			Channels:      []string{"issue"},
		}
	}
}
