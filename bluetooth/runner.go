package bluetooth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// Step is one line fed to a one-shot invocation, followed by a fixed wait.
type Step struct {
	Line string
	Wait time.Duration
}

// Runner feeds a fixed script to a fresh control-program process and
// returns everything it printed.
type Runner interface {
	Run(ctx context.Context, steps []Step) (string, error)
}

type ShellRunner struct {
	Binary string
	// Slack bounds the run on top of the scripted waits.
	Slack time.Duration
	Log   zerolog.Logger
}

func NewShellRunner(opts Options, log zerolog.Logger) *ShellRunner {
	return &ShellRunner{
		Binary: opts.Binary,
		Slack:  opts.ListTimeout,
		Log:    log,
	}
}

func (r *ShellRunner) Run(ctx context.Context, steps []Step) (string, error) {
	budget := r.Slack
	for _, st := range steps {
		budget += st.Wait
	}
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.Binary)
	cmd.Env = os.Environ()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolUnavailable, r.Binary, err)
	}

	for _, st := range steps {
		r.Log.Debug().Str("line", st.Line).Msg("Sending to one-shot session")
		if _, err := io.WriteString(stdin, st.Line+"\n"); err != nil {
			r.Log.Warn().Err(err).Str("line", st.Line).Msg("Error while sending commands")
			break
		}
		if err := sleepContext(runCtx, st.Wait); err != nil {
			break
		}
	}
	stdin.Close()

	waitErr := cmd.Wait()
	output := ansiPattern.ReplaceAllString(out.String(), "")
	r.Log.Debug().Str("output", output).Msg("One-shot session output")

	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return output, err
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("%w: %s did not finish within %s", ErrTimeout, r.Binary, budget)
	}
	if waitErr != nil {
		return output, fmt.Errorf("%w: %v", ErrToolUnavailable, waitErr)
	}
	return output, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
