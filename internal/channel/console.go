package channel

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// ConsoleChannel writes decision documents to a writer. It is the default
// when no issue tracker is configured and doubles as a dry-run channel.
type ConsoleChannel struct {
	out  io.Writer
	next atomic.Int64
}

// NewConsoleChannel creates a console channel writing to w; nil defaults
// to stdout.
func NewConsoleChannel(w io.Writer) *ConsoleChannel {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleChannel{out: w}
}

// Name identifies this channel in logs and policy lists.
func (c *ConsoleChannel) Name() string { return "console" }

// Post prints the document and returns a synthetic reference.
func (c *ConsoleChannel) Post(_ context.Context, msg Message) (string, error) {
	ref := fmt.Sprintf("console-%d", c.next.Add(1))
	fmt.Fprintf(c.out, "==== %s [%s]\nlabels: %v\n\n%s\n", ref, msg.Title, msg.Labels, msg.Body)
	return ref, nil
}

// Comment prints a follow-up under the reference.
func (c *ConsoleChannel) Comment(_ context.Context, ref, body string) error {
	fmt.Fprintf(c.out, "---- comment on %s\n%s\n", ref, body)
	return nil
}

// Close prints a closing note.
func (c *ConsoleChannel) Close(_ context.Context, ref string) error {
	fmt.Fprintf(c.out, "---- closed %s\n", ref)
	return nil
}
