package bluetooth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/usenocturne/headunitd/utils"
)

type commandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// BluetoothManager is the surface the HTTP layer talks to. Every call is
// synchronous and bounded by the configured timeouts.
type BluetoothManager struct {
	registry   *Registry
	orch       *Orchestrator
	supervisor *Supervisor
	profiles   *ProfileActivator
	events     EventSink
	opts       Options
	log        zerolog.Logger
	command    commandFunc
}

// NewBluetoothManager wires the collaborators once at start-up. bus may be
// nil when the system bus is unavailable; profile activation then reports
// an error instead of probing.
func NewBluetoothManager(opts Options, bus DeviceBus, events EventSink, log zerolog.Logger) *BluetoothManager {
	opts = opts.WithDefaults()
	runner := NewShellRunner(opts, log.With().Str("component", "runner").Logger())
	shell := NewShell(opts, log.With().Str("component", "session").Logger())
	return newBluetoothManager(opts, shell, runner, bus, events, log)
}

func newBluetoothManager(opts Options, shell Opener, runner Runner, bus DeviceBus, events EventSink, log zerolog.Logger) *BluetoothManager {
	if events == nil {
		events = nopSink{}
	}
	registry := NewRegistry(runner, opts, log.With().Str("component", "registry").Logger())
	profiles := NewProfileActivator(bus, opts, log.With().Str("component", "profiles").Logger())
	orch := NewOrchestrator(shell, runner, registry, profiles, events, opts, log.With().Str("component", "orchestrator").Logger())
	supervisor := NewSupervisor(orch, registry, registry, log.With().Str("component", "supervisor").Logger())

	return &BluetoothManager{
		registry:   registry,
		orch:       orch,
		supervisor: supervisor,
		profiles:   profiles,
		events:     events,
		opts:       opts,
		log:        log,
		command:    utils.ExecuteCommand,
	}
}

func (m *BluetoothManager) ScanForDevices(ctx context.Context, window time.Duration) ([]Device, error) {
	devices, err := m.registry.ScanForDevices(ctx, window)
	if err != nil {
		return nil, err
	}

	payload := utils.ScanResultPayload{Devices: make([]utils.ScannedDevicePayload, 0, len(devices))}
	for _, d := range devices {
		payload.Devices = append(payload.Devices, utils.ScannedDevicePayload{Address: d.Address, Name: d.Name, Paired: d.Paired})
	}
	m.events.Broadcast(utils.WebSocketEvent{Type: utils.EventScan, Payload: payload})
	return devices, nil
}

func (m *BluetoothManager) ListKnownDevices(ctx context.Context) ([]Device, error) {
	return m.registry.ListKnownDevices(ctx)
}

func (m *BluetoothManager) Info(ctx context.Context, address string) (DeviceInfo, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return DeviceInfo{}, err
	}
	return m.registry.Info(ctx, addr)
}

func (m *BluetoothManager) Connect(ctx context.Context, address string) (bool, error) {
	return m.orch.Connect(ctx, address)
}

func (m *BluetoothManager) Disconnect(ctx context.Context) (bool, error) {
	return m.orch.Disconnect(ctx)
}

func (m *BluetoothManager) AutoConnect(ctx context.Context) (bool, error) {
	return m.supervisor.AutoConnect(ctx)
}

func (m *BluetoothManager) ActivateProfiles(ctx context.Context, address string) (ActivationReport, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return ActivationReport{}, err
	}
	return m.profiles.ActivateProfiles(ctx, addr), nil
}

// ResetCache stops the stack, deletes its persisted bonds and starts it
// again. It holds the connection gate so no attempt runs meanwhile.
func (m *BluetoothManager) ResetCache(ctx context.Context) error {
	return m.orch.Exclusive(func() error {
		if output, err := m.command(ctx, "systemctl", "stop", m.opts.ServiceName); err != nil {
			return fmt.Errorf("failed to stop %s: %v (output: %s)", m.opts.ServiceName, err, output)
		}

		if _, err := os.Stat(m.opts.CacheDir); err == nil {
			if err := os.RemoveAll(m.opts.CacheDir); err != nil {
				return fmt.Errorf("failed to remove cache: %w", err)
			}
			m.log.Info().Str("path", m.opts.CacheDir).Msg("Bluetooth cache deleted")
		} else {
			m.log.Info().Str("path", m.opts.CacheDir).Msg("Cache directory does not exist")
		}

		if output, err := m.command(ctx, "systemctl", "start", m.opts.ServiceName); err != nil {
			return fmt.Errorf("failed to start %s: %v (output: %s)", m.opts.ServiceName, err, output)
		}
		m.log.Info().Msg("Bluetooth service restarted")
		return nil
	})
}
