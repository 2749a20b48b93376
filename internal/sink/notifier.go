package sink

import (
	"context"
	"fmt"

	"scriptmenu/internal/model"
)

// NotifyFunc shows a message to the user. It is implemented by the host
// (terminal banner, stdout, desktop notification daemon).
type NotifyFunc func(title, message string) error

// Notifier turns completions into one user visible message each.
type Notifier struct {
	title  string
	notify NotifyFunc
}

// NewNotifier returns a Notifier posting under title.
func NewNotifier(title string, notify NotifyFunc) *Notifier {
	return &Notifier{title: title, notify: notify}
}

func (n *Notifier) Name() string { return "notifier" }

func (n *Notifier) Deliver(_ context.Context, c model.Completion) error {
	return n.notify(n.title, Message(c))
}

// Message renders a completion: stdout if any, else stderr if any, else the
// exit status; spawn failures show the OS reason.
func Message(c model.Completion) string {
	if c.Err != nil {
		return fmt.Sprintf("[%s]: %s", c.Script, c.Err)
	}
	res := c.Result
	switch {
	case res.Stdout != "":
		return fmt.Sprintf("[%s]: %s", c.Script, res.Stdout)
	case res.Stderr != "":
		return fmt.Sprintf("[%s]: %s", c.Script, res.Stderr)
	default:
		return fmt.Sprintf("[%s]: completed with exit code: %d", c.Script, res.ExitStatus)
	}
}
