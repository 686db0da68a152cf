package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"
)

// ErrRunFailed is returned when the run ended on an error, timeout or critical message.
var ErrRunFailed = errors.New("automation run failed")

// TerminalInterface runs the workflow once and prints the stream as it arrives.
type TerminalInterface struct {
	runner interfaces.FeedbackRunner
	out    io.Writer
}

func NewTerminalInterface(runner interfaces.FeedbackRunner, out io.Writer) *TerminalInterface {
	return &TerminalInterface{
		runner: runner,
		out:    out,
	}
}

func (t *TerminalInterface) Run(ctx context.Context, creds entities.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		last     entities.Message
		received bool
	)
	for msg := range t.runner.Run(runCtx, creds) {
		if _, err := fmt.Fprint(t.out, msg.String()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		last = msg
		received = true
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !received {
		return fmt.Errorf("%w: no output", ErrRunFailed)
	}
	if last.Failed() {
		return fmt.Errorf("%w (%s)", ErrRunFailed, last.Kind)
	}
	return nil
}
