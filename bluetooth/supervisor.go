package bluetooth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/usenocturne/headunitd/utils"
)

type KnownDevices interface {
	ListKnownDevices(ctx context.Context) ([]Device, error)
}

type StatusProber interface {
	Info(ctx context.Context, address string) (DeviceInfo, error)
}

// Supervisor sweeps the known devices and connects the first that answers.
type Supervisor struct {
	orch    *Orchestrator
	devices KnownDevices
	probe   StatusProber
	log     zerolog.Logger
}

func NewSupervisor(orch *Orchestrator, devices KnownDevices, probe StatusProber, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		orch:    orch,
		devices: devices,
		probe:   probe,
		log:     log,
	}
}

// AutoConnect holds the orchestrator gate for the whole sweep.
func (s *Supervisor) AutoConnect(ctx context.Context) (bool, error) {
	var connected bool
	err := s.orch.Exclusive(func() error {
		var err error
		connected, err = s.sweep(ctx)
		return err
	})
	return connected, err
}

func (s *Supervisor) sweep(ctx context.Context) (bool, error) {
	devices, err := s.devices.ListKnownDevices(ctx)
	if err != nil {
		return false, err
	}
	if len(devices) == 0 {
		return false, ErrNoKnownDevices
	}
	s.log.Info().Int("candidates", len(devices)).Msg("Auto-connect started")

	var errs []error
	for _, d := range devices {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		log := s.log.With().Str("address", d.Address).Str("name", d.Name).Logger()

		info, err := s.probe.Info(ctx, d.Address)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("Status probe failed")
		case info.Connected:
			log.Info().Msg("Device already connected")
			s.orch.events.Broadcast(utils.WebSocketEvent{
				Type:    utils.EventConnect,
				Payload: utils.DeviceConnectedPayload{Address: d.Address},
			})
			return true, nil
		}

		ok, err := s.tryCandidate(ctx, d.Address)
		if ok {
			log.Info().Msg("Auto-connect succeeded")
			return true, nil
		}
		log.Warn().Err(err).Msg("Candidate failed, trying next")
		errs = append(errs, err)
	}

	return false, fmt.Errorf("%w: %w", ErrAllCandidatesFailed, errors.Join(errs...))
}

// tryCandidate isolates one candidate so a panic cannot end the sweep.
func (s *Supervisor) tryCandidate(ctx context.Context, address string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("candidate %s panicked: %v", address, r)
		}
	}()

	addr, err := ParseAddress(address)
	if err != nil {
		return false, err
	}
	a := s.orch.attempt(ctx, addr)
	return a.Succeeded(), a.Err
}
