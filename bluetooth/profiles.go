package bluetooth

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ProfileActivator enriches a freshly connected device. Nothing it does
// can fail the connection.
type ProfileActivator struct {
	bus   DeviceBus
	pause time.Duration
	log   zerolog.Logger
}

func NewProfileActivator(bus DeviceBus, opts Options, log zerolog.Logger) *ProfileActivator {
	if bus == nil {
		bus = offlineBus{}
	}
	return &ProfileActivator{
		bus:   bus,
		pause: opts.ProbePause,
		log:   log,
	}
}

func (p *ProfileActivator) ActivateProfiles(ctx context.Context, address string) ActivationReport {
	report := ActivationReport{Address: address, Capabilities: CapabilitySet{}}
	log := p.log.With().Str("address", address).Logger()
	log.Info().Msg("Activating profiles")

	connected, err := p.bus.Connected(ctx, address)
	if err != nil {
		log.Error().Err(err).Msg("Device retrieval error")
		report.CapabilityError = err.Error()
		return report
	}
	if !connected {
		log.Warn().Msg("Device is not connected. Skipping profile activation")
		return report
	}
	report.Connected = true

	uuids, err := p.bus.UUIDs(ctx, address)
	if err != nil {
		log.Error().Err(err).Msg("Error retrieving UUIDs")
		report.CapabilityError = err.Error()
	} else {
		report.Capabilities = NewCapabilitySet(uuids)
		log.Debug().Strs("capabilities", report.Capabilities).Msg("Capabilities read")
	}

	if err := p.probeMedia(ctx, address); err != nil {
		log.Warn().Err(err).Msg("Failed to activate A2DP")
		report.MediaError = err.Error()
	} else {
		report.MediaActivated = true
		log.Info().Msg("A2DP activated successfully")
	}

	report.AVRCP = report.Capabilities.HasAny(avrcpCapabilities...)
	if report.AVRCP {
		log.Info().Msg("AVRCP is supported by the device")
	} else {
		log.Warn().Msg("AVRCP UUID not found")
	}

	// The stack cannot drive hands-free itself; this is reported only.
	report.HandsFree = report.Capabilities.HasAny(handsFreeCapabilities...)
	if report.HandsFree {
		log.Info().Msg("HFP is supported (info only)")
	} else {
		log.Warn().Msg("HFP UUID not found")
	}

	return report
}

// probeMedia starts and pauses playback to wake the audio profile.
func (p *ProfileActivator) probeMedia(ctx context.Context, address string) error {
	if err := p.bus.PlayerCommand(ctx, address, "Play"); err != nil {
		return err
	}
	if err := sleepContext(ctx, p.pause); err != nil {
		return err
	}
	return p.bus.PlayerCommand(ctx, address, "Pause")
}
