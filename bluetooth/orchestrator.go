package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/usenocturne/headunitd/utils"
)

type DeviceLister interface {
	IsKnown(ctx context.Context, address string) (bool, error)
}

type Activator interface {
	ActivateProfiles(ctx context.Context, address string) ActivationReport
}

// EventSink receives UI events. ws.WebSocketHub implements it.
type EventSink interface {
	Broadcast(event utils.WebSocketEvent)
}

type nopSink struct{}

func (nopSink) Broadcast(utils.WebSocketEvent) {}

// Orchestrator drives one connection attempt at a time through
// disconnect, pair-or-connect and profile activation.
type Orchestrator struct {
	shell    Opener
	runner   Runner
	devices  DeviceLister
	profiles Activator
	events   EventSink
	opts     Options
	log      zerolog.Logger

	// gate admits a single in-flight operation system-wide.
	gate *semaphore.Weighted
}

func NewOrchestrator(shell Opener, runner Runner, devices DeviceLister, profiles Activator, events EventSink, opts Options, log zerolog.Logger) *Orchestrator {
	if events == nil {
		events = nopSink{}
	}
	return &Orchestrator{
		shell:    shell,
		runner:   runner,
		devices:  devices,
		profiles: profiles,
		events:   events,
		opts:     opts,
		log:      log,
		gate:     semaphore.NewWeighted(1),
	}
}

// Exclusive runs fn while holding the in-flight gate, or fails with
// ErrBusy if another operation holds it.
func (o *Orchestrator) Exclusive(fn func() error) error {
	if !o.gate.TryAcquire(1) {
		return ErrBusy
	}
	defer o.gate.Release(1)
	return fn()
}

func (o *Orchestrator) Connect(ctx context.Context, address string) (bool, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return false, err
	}

	var attempt *ConnectionAttempt
	if err := o.Exclusive(func() error {
		attempt = o.attempt(ctx, addr)
		return nil
	}); err != nil {
		return false, err
	}
	return attempt.Succeeded(), attempt.Err
}

func (o *Orchestrator) Disconnect(ctx context.Context) (bool, error) {
	var disconnected bool
	err := o.Exclusive(func() error {
		var err error
		disconnected, err = o.disconnect(ctx)
		return err
	})
	return disconnected, err
}

func (o *Orchestrator) disconnect(ctx context.Context) (bool, error) {
	o.log.Info().Msg("Disconnecting device")
	output, err := o.runner.Run(ctx, []Step{
		{Line: cmdDisconnect, Wait: o.opts.StepDelay},
		{Line: cmdExit},
	})
	if err != nil {
		return false, fmt.Errorf("failed to disconnect: %w", err)
	}
	return strings.Contains(output, markerDisconnected), nil
}

// failure is the reason a step moved the attempt to Failed.
type failure struct {
	reason error
	cause  error
}

func fail(reason, cause error) *failure {
	return &failure{reason: reason, cause: cause}
}

// attempt runs the state machine for addr. The caller holds the gate.
func (o *Orchestrator) attempt(ctx context.Context, addr string) *ConnectionAttempt {
	a := &ConnectionAttempt{
		ID:            uuid.NewString(),
		TargetAddress: addr,
		State:         StateIdle,
		Started:       time.Now(),
	}
	log := o.log.With().Str("attempt_id", a.ID).Str("address", addr).Logger()
	log.Info().Msg("Connecting to device")

	o.transition(a, log, StateDisconnecting)
	if _, err := o.disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("Disconnect failed, treating as already disconnected")
	}
	if err := ctx.Err(); err != nil {
		o.failAttempt(a, log, fail(ErrConnectFailed, err))
		return a
	}

	known, err := o.devices.IsKnown(ctx, addr)
	if err != nil {
		reason := ErrToolUnavailable
		if errors.Is(err, ErrTimeout) {
			reason = ErrTimeout
		}
		o.failAttempt(a, log, fail(reason, err))
		return a
	}

	var f *failure
	if known {
		a.Flow = FlowPairedDirect
		log = log.With().Str("flow", string(a.Flow)).Logger()
		log.Info().Msg("Device is already paired")
		o.transition(a, log, StateConnectingDirect)
		f = o.connectDirect(ctx, log, addr)
	} else {
		a.Flow = FlowNewPairing
		log = log.With().Str("flow", string(a.Flow)).Logger()
		log.Info().Msg("Device is new, pairing and connecting")
		o.transition(a, log, StatePairingNew)
		f = o.pairNew(ctx, log, addr)
	}
	if f != nil {
		o.failAttempt(a, log, f)
		return a
	}

	o.transition(a, log, StateActivatingProfiles)
	report := o.profiles.ActivateProfiles(ctx, addr)
	a.Report = &report

	o.transition(a, log, StateConnected)
	o.events.Broadcast(utils.WebSocketEvent{
		Type:    utils.EventConnect,
		Payload: utils.DeviceConnectedPayload{Address: addr},
	})
	log.Info().Dur("elapsed", time.Since(a.Started)).Msg("Device connected")
	return a
}

func (o *Orchestrator) transition(a *ConnectionAttempt, log zerolog.Logger, next State) {
	log.Info().Str("from", string(a.State)).Str("state", string(next)).Msg("Connection state changed")
	a.State = next
	o.events.Broadcast(utils.WebSocketEvent{
		Type: utils.EventConnectState,
		Payload: utils.AttemptStatePayload{
			AttemptID: a.ID,
			Address:   a.TargetAddress,
			Flow:      string(a.Flow),
			State:     string(next),
		},
	})
}

func (o *Orchestrator) failAttempt(a *ConnectionAttempt, log zerolog.Logger, f *failure) {
	a.Err = &AttemptError{
		AttemptID: a.ID,
		Address:   a.TargetAddress,
		Flow:      a.Flow,
		State:     a.State,
		Reason:    f.reason,
		Cause:     f.cause,
	}
	log.Error().Err(a.Err).Msg("Connection attempt failed")
	a.State = StateFailed
	o.events.Broadcast(utils.WebSocketEvent{
		Type: utils.EventConnectState,
		Payload: utils.AttemptStatePayload{
			AttemptID: a.ID,
			Address:   a.TargetAddress,
			Flow:      string(a.Flow),
			State:     string(StateFailed),
			Reason:    f.reason.Error(),
		},
	})
}

// connectDirect is time-driven: connect, wait a fixed delay, exit, then
// look for an active link in the transcript.
func (o *Orchestrator) connectDirect(ctx context.Context, log zerolog.Logger, addr string) *failure {
	output, err := o.runner.Run(ctx, []Step{
		{Line: "connect " + addr, Wait: o.opts.StepDelay},
		{Line: cmdExit},
	})
	if err != nil {
		return fail(ErrDirectConnectFailed, err)
	}
	if !strings.Contains(output, markerLinkActive) {
		log.Debug().Str("output", output).Msg("No active link in transcript")
		return fail(ErrDirectConnectFailed, nil)
	}
	return nil
}

func (o *Orchestrator) pairNew(ctx context.Context, log zerolog.Logger, addr string) *failure {
	sess, err := o.shell.Open(ctx)
	if err != nil {
		return fail(ErrPairingFailed, err)
	}
	defer sess.Close()

	if m, err := sess.ExpectAny(ctx, promptPatterns, o.opts.PromptTimeout); err != nil {
		return fail(ErrPairingFailed, err)
	} else if m.TimedOut() {
		log.Warn().Msg("No shell prompt seen, continuing")
	}

	if f := o.configureAgent(ctx, log, sess); f != nil {
		return f
	}

	if err := sess.SendLine("pair " + addr); err != nil {
		return fail(ErrPairingFailed, err)
	}
	if f := o.pairDialogue(ctx, log, sess); f != nil {
		return f
	}

	if err := sess.SendLine("trust " + addr); err != nil {
		return fail(ErrPairingFailed, err)
	}
	if m, err := sess.ExpectAny(ctx, trustPatterns, o.opts.TrustTimeout); err != nil {
		return fail(ErrPairingFailed, err)
	} else if m.Outcome != OutcomeTrustSucceeded {
		log.Warn().Str("outcome", m.Outcome.String()).Msg("Could not mark device trusted")
	}

	if err := sess.SendLine("connect " + addr); err != nil {
		return fail(ErrConnectFailed, err)
	}
	m, err := sess.ExpectAny(ctx, connectPatterns, o.opts.ConnectTimeout)
	if err != nil {
		return fail(ErrConnectFailed, err)
	}
	if m.Outcome != OutcomeConnectSuccess {
		log.Error().Str("before", m.Before).Msg("Connection failed")
		return fail(ErrConnectFailed, outcomeError(m))
	}

	// Bonded; stop advertising to other peers.
	for _, line := range []string{cmdPairableOff, cmdDiscoverOff} {
		if err := sess.SendLine(line); err != nil {
			log.Warn().Err(err).Str("line", line).Msg("Failed to lock down adapter")
		}
	}
	return nil
}

// configureAgent registers a no-interaction agent. The agent already being
// registered counts as success; other misses are logged.
func (o *Orchestrator) configureAgent(ctx context.Context, log zerolog.Logger, sess Session) *failure {
	steps := []struct {
		line     string
		patterns []Pattern
		want     Outcome
	}{
		{cmdAgent, agentPatterns, OutcomeAgentRegistered},
		{cmdDefaultAgent, defaultAgentPatterns, OutcomeDefaultAgent},
	}
	for _, st := range steps {
		if err := sess.SendLine(st.line); err != nil {
			return fail(ErrPairingFailed, err)
		}
		m, err := sess.ExpectAny(ctx, st.patterns, o.opts.AgentTimeout)
		if err != nil {
			return fail(ErrPairingFailed, err)
		}
		if m.Outcome != st.want {
			log.Warn().Str("line", st.line).Str("outcome", m.Outcome.String()).Msg("Agent setup incomplete")
		}
	}
	return nil
}

// pairDialogue answers passkey and PIN prompts until the stack reports a
// result. Replies are capped so a peer cannot prompt forever.
func (o *Orchestrator) pairDialogue(ctx context.Context, log zerolog.Logger, sess Session) *failure {
	replies := 0
	for {
		m, err := sess.ExpectAny(ctx, pairPatterns, o.opts.PairTimeout)
		if err != nil {
			return fail(ErrPairingFailed, err)
		}

		var reply string
		switch m.Outcome {
		case OutcomeConfirmPasskey:
			reply = cmdYes
		case OutcomePINRequest:
			reply = o.opts.DefaultPIN
		case OutcomePairSuccess:
			log.Info().Msg("Pairing completed successfully")
			return nil
		case OutcomeAlreadyPaired:
			log.Info().Msg("Device already paired")
			return nil
		default:
			log.Error().Str("outcome", m.Outcome.String()).Str("before", m.Before).Msg("Pairing error")
			return fail(ErrPairingFailed, outcomeError(m))
		}

		if replies >= o.opts.MaxPromptReplies {
			return fail(ErrPairingFailed, fmt.Errorf("peer prompted more than %d times", o.opts.MaxPromptReplies))
		}
		replies++
		if err := sess.SendLine(reply); err != nil {
			return fail(ErrPairingFailed, err)
		}
		log.Info().Str("prompt", m.Outcome.String()).Int("reply", replies).Msg("Answered pairing prompt")
	}
}

func outcomeError(m Match) error {
	if m.TimedOut() {
		return ErrTimeout
	}
	return fmt.Errorf("stack reported %s", m.Outcome)
}
