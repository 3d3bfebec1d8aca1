// Package notify provides gateway.Notifier implementations.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/and161185/sm-portal/internal/gateway"
)

// Prompt shows a notice on the terminal and waits for Enter.
type Prompt struct {
	Stdin  io.ReadCloser  // nil means os.Stdin
	Stdout io.WriteCloser // nil means os.Stdout
}

var _ gateway.Notifier = (*Prompt)(nil)

// Notify blocks until the user acknowledges n. Interrupting the prompt
// counts as an acknowledgement.
func (p *Prompt) Notify(ctx context.Context, n gateway.Notice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pr := promptui.Prompt{
		Label:       fmt.Sprintf("%s: %s (press Enter)", n.Title, n.Text),
		HideEntered: true,
		Stdin:       p.Stdin,
		Stdout:      p.Stdout,
	}
	_, err := pr.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return nil
	}
	return err
}

// Log writes notices to a logger; for non-interactive runs.
type Log struct {
	L *zap.Logger
}

// Notify logs n at warn level.
func (l Log) Notify(_ context.Context, n gateway.Notice) error {
	l.L.Warn(n.Title, zap.String("text", n.Text))
	return nil
}

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []gateway.Notice
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n gateway.Notice) error {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
	return nil
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []gateway.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gateway.Notice(nil), r.notices...)
}

// Multi fans a notice out to several notifiers, returning the first error.
type Multi []gateway.Notifier

// Notify calls every notifier in order.
func (m Multi) Notify(ctx context.Context, n gateway.Notice) error {
	var first error
	for _, x := range m {
		if err := x.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
