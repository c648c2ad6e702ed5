// Package channel abstracts where escalation decision requests are
// published. EscalationManager only speaks this interface; issue trackers,
// chat, and email are interchangeable behind it.
package channel

import "context"

// Message is a decision document ready for publishing.
type Message struct {
	Title  string
	Body   string
	Labels []string
}

// Channel renders escalations externally. Post returns an opaque
// reference (issue number, thread id) used for follow-up comments.
type Channel interface {
	Post(ctx context.Context, msg Message) (ref string, err error)
	Comment(ctx context.Context, ref string, body string) error
	Close(ctx context.Context, ref string) error
	Name() string
}
