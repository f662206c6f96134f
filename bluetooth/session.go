package bluetooth

//go:generate mockgen -destination=mock_bluetooth.go -package=bluetooth github.com/usenocturne/headunitd/bluetooth Runner,Opener,Session,DeviceBus

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Session is one interactive control-program dialogue. A Session is
// driven by a single goroutine; only Close may be called concurrently.
type Session interface {
	SendLine(text string) error
	// ExpectAny waits until one of patterns matches the unread output.
	// Running out of time is reported as a Match whose Outcome is
	// OutcomeTimeout, not as an error.
	ExpectAny(ctx context.Context, patterns []Pattern, timeout time.Duration) (Match, error)
	Close() error
}

type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Shell spawns interactive bluetoothctl sessions.
type Shell struct {
	Binary     string
	Args       []string
	CloseGrace time.Duration
	SpawnCheck time.Duration
	Log        zerolog.Logger
}

func NewShell(opts Options, log zerolog.Logger) *Shell {
	return &Shell{
		Binary:     opts.Binary,
		CloseGrace: opts.CloseGrace,
		SpawnCheck: opts.SpawnCheck,
		Log:        log,
	}
}

// Open starts the child process. The process is killed when ctx is done
// or when the returned Session is closed, whichever comes first.
func (s *Shell) Open(ctx context.Context) (Session, error) {
	cmd := exec.CommandContext(ctx, s.Binary, s.Args...)
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, s.Binary, err)
	}

	sess := newPipeSession(stdin, pr, s.Log)
	sess.grace = s.CloseGrace
	sess.kill = func() error { return cmd.Process.Kill() }

	go func() {
		err := cmd.Wait()
		pw.Close()
		sess.markExited(err)
	}()

	select {
	case <-sess.exited:
		return nil, fmt.Errorf("%w: %s exited immediately: %v", ErrSpawn, s.Binary, sess.exitErr)
	case <-time.After(s.SpawnCheck):
	}

	s.Log.Debug().Str("binary", s.Binary).Int("pid", cmd.Process.Pid).Msg("Interactive session started")
	return sess, nil
}

const maxSessionBuffer = 64 * 1024

type pipeSession struct {
	stdin io.WriteCloser
	log   zerolog.Logger
	grace time.Duration
	kill  func() error

	mu      sync.Mutex
	buf     string
	pending string
	eof     bool
	notify  chan struct{}

	exitOnce sync.Once
	exited   chan struct{}
	exitErr  error

	closeOnce sync.Once
	closed    chan struct{}
}

func newPipeSession(stdin io.WriteCloser, stdout io.Reader, log zerolog.Logger) *pipeSession {
	s := &pipeSession{
		stdin:  stdin,
		log:    log,
		notify: make(chan struct{}, 1),
		exited: make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.pump(stdout)
	return s
}

func (s *pipeSession) pump(r io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			s.append(string(chunk[:n]))
		}
		if err != nil {
			s.mu.Lock()
			s.buf += ansiPattern.ReplaceAllString(s.pending, "")
			s.pending = ""
			s.eof = true
			s.mu.Unlock()
			s.signal()
			return
		}
	}
}

func (s *pipeSession) append(text string) {
	s.mu.Lock()
	text = s.pending + text
	s.pending = ""
	// Hold back an escape sequence split across reads.
	if i := strings.LastIndexByte(text, 0x1b); i >= 0 && !ansiPattern.MatchString(text[i:]) {
		s.pending = text[i:]
		text = text[:i]
	}
	s.buf += ansiPattern.ReplaceAllString(text, "")
	if len(s.buf) > maxSessionBuffer {
		s.buf = s.buf[len(s.buf)-maxSessionBuffer:]
	}
	s.mu.Unlock()
	s.signal()
}

func (s *pipeSession) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *pipeSession) markExited(err error) {
	s.exitOnce.Do(func() {
		s.exitErr = err
		close(s.exited)
	})
}

func (s *pipeSession) SendLine(text string) error {
	select {
	case <-s.closed:
		return fmt.Errorf("%w: session closed", ErrWrite)
	case <-s.exited:
		return fmt.Errorf("%w: process exited", ErrWrite)
	default:
	}

	s.log.Debug().Str("line", text).Msg("Sending to session")
	if _, err := io.WriteString(s.stdin, text+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func (s *pipeSession) ExpectAny(ctx context.Context, patterns []Pattern, timeout time.Duration) (Match, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		m, ok := s.search(patterns)
		eof := s.eof
		s.mu.Unlock()

		if ok {
			s.log.Debug().Str("outcome", m.Outcome.String()).Str("before", m.Before).Msg("Session matched")
			return m, nil
		}
		if eof {
			return Match{Index: -1}, ErrSessionClosed
		}

		select {
		case <-s.notify:
		case <-timer.C:
			s.mu.Lock()
			before := s.buf
			s.mu.Unlock()
			s.log.Debug().Str("before", before).Dur("timeout", timeout).Msg("Session timed out")
			return timeoutMatch(before), nil
		case <-ctx.Done():
			return Match{Index: -1}, ctx.Err()
		}
	}
}

// search picks the pattern whose match starts earliest, preferring the
// lower index on a tie, and consumes output up to the end of the match.
// Caller holds s.mu.
func (s *pipeSession) search(patterns []Pattern) (Match, bool) {
	best := -1
	var loc []int
	for i, p := range patterns {
		l := p.Expr.FindStringIndex(s.buf)
		if l == nil {
			continue
		}
		if best < 0 || l[0] < loc[0] {
			best, loc = i, l
		}
	}
	if best < 0 {
		return Match{}, false
	}

	m := Match{
		Index:   best,
		Outcome: patterns[best].Outcome,
		Before:  s.buf[:loc[0]],
		Text:    s.buf[loc[0]:loc[1]],
	}
	s.buf = s.buf[loc[1]:]
	return m, true
}

// Close asks the program to exit, waits up to the grace period and then
// kills it. It is idempotent.
func (s *pipeSession) Close() error {
	s.closeOnce.Do(func() {
		select {
		case <-s.exited:
		default:
			_, _ = io.WriteString(s.stdin, cmdExit+"\n")
		}
		close(s.closed)
		s.stdin.Close()

		if s.kill == nil {
			return
		}

		select {
		case <-s.exited:
		case <-time.After(s.grace):
			if err := s.kill(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to kill session process")
			}
			<-s.exited
		}
	})
	return nil
}
