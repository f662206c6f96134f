package bluetooth

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// listSettle gives the stack time to print a listing before exit is sent.
const listSettle = 500 * time.Millisecond

const deviceRecord = `Device\s+((?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2})(?:[ \t]+(.*))?`

var (
	// Scan output keeps "[NEW] Device" discovery lines.
	devicePattern = regexp.MustCompile(deviceRecord)
	// Bonded listings only trust bare records. The startup "[NEW] Device"
	// preamble covers every cached device, paired or not.
	pairedDevicePattern = regexp.MustCompile(`^` + deviceRecord)
	eventPrefixes       = []string{"[CHG]", "[DEL]"}
)

// Registry reads device listings from one-shot control-program runs.
type Registry struct {
	runner Runner
	opts   Options
	log    zerolog.Logger
}

func NewRegistry(runner Runner, opts Options, log zerolog.Logger) *Registry {
	return &Registry{
		runner: runner,
		opts:   opts,
		log:    log,
	}
}

// ListKnownDevices returns the devices bonded with the local adapter.
func (r *Registry) ListKnownDevices(ctx context.Context) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ListTimeout)
	defer cancel()

	output, err := r.runner.Run(ctx, []Step{
		{Line: cmdPairedDevices, Wait: listSettle},
		{Line: cmdExit},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list paired devices: %w", err)
	}

	devices := ParsePairedDevices(output)
	for i := range devices {
		devices[i].Paired = true
	}
	r.log.Info().Int("count", len(devices)).Msg("Found paired devices")
	return devices, nil
}

// IsKnown reports whether address is in a fresh known-device snapshot.
func (r *Registry) IsKnown(ctx context.Context, address string) (bool, error) {
	devices, err := r.ListKnownDevices(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range devices {
		if d.Address == address {
			return true, nil
		}
	}
	return false, nil
}

// ScanForDevices runs discovery for the whole window; the protocol has no
// completion signal.
func (r *Registry) ScanForDevices(ctx context.Context, window time.Duration) ([]Device, error) {
	if window <= 0 {
		window = r.opts.ScanWindow
	}
	r.log.Info().Dur("window", window).Msg("Scanning is started")

	output, err := r.runner.Run(ctx, []Step{
		{Line: cmdScanOn, Wait: window},
		{Line: cmdScanOff},
		{Line: cmdDevices, Wait: listSettle},
		{Line: cmdExit},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan devices: %w", err)
	}

	devices := ParseDevices(output)

	known, err := r.ListKnownDevices(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("Could not mark paired devices in scan result")
		return devices, nil
	}
	paired := make(map[string]struct{}, len(known))
	for _, d := range known {
		paired[d.Address] = struct{}{}
	}
	for i := range devices {
		_, devices[i].Paired = paired[devices[i].Address]
	}
	return devices, nil
}

// Info runs "info <address>" and parses the property block.
func (r *Registry) Info(ctx context.Context, address string) (DeviceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ListTimeout)
	defer cancel()

	output, err := r.runner.Run(ctx, []Step{
		{Line: "info " + address, Wait: listSettle},
		{Line: cmdExit},
	})
	if err != nil {
		return DeviceInfo{Address: address}, fmt.Errorf("failed to get device info: %w", err)
	}
	return ParseInfo(address, output), nil
}

// ParseDevices extracts "Device <address> <name>" records from scan output,
// including "[NEW] Device" discovery lines. Property-change lines are
// skipped. When an address repeats, the record keeps its first-seen position
// and takes the fields of the last occurrence.
func ParseDevices(output string) []Device {
	return parseDevices(output, devicePattern)
}

// ParsePairedDevices reads a "devices Paired" listing. Only lines starting
// with "Device" count, so event and prompt-echo lines are ignored.
func ParsePairedDevices(output string) []Device {
	return parseDevices(output, pairedDevicePattern)
}

func parseDevices(output string, pattern *regexp.Regexp) []Device {
	var devices []Device
	index := make(map[string]int)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if isEventLine(line) {
			continue
		}
		m := pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		address := strings.ToUpper(m[1])
		name := strings.TrimSpace(m[2])
		if strings.EqualFold(name, strings.ReplaceAll(address, ":", "-")) {
			name = ""
		}

		d := Device{Address: address, Name: name}
		if i, ok := index[address]; ok {
			devices[i] = d
			continue
		}
		index[address] = len(devices)
		devices = append(devices, d)
	}
	return devices
}

func isEventLine(line string) bool {
	for _, p := range eventPrefixes {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

// ParseInfo reads the indented "Key: value" block printed by "info".
func ParseInfo(address string, output string) DeviceInfo {
	info := DeviceInfo{Address: address}
	var uuids []string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "UUID:") {
			if open, end := strings.LastIndex(line, "("), strings.LastIndex(line, ")"); open >= 0 && end > open {
				uuids = append(uuids, line[open+1:end])
			}
			continue
		}

		if strings.HasPrefix(line, "Device") {
			continue
		}

		parts := strings.SplitN(line, ": ", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "Name":
			info.Name = value
		case "Alias":
			info.Alias = value
		case "Class":
			info.Class = value
		case "Icon":
			info.Icon = value
		case "Paired":
			info.Paired = value == "yes"
		case "Bonded":
			info.Bonded = value == "yes"
		case "Trusted":
			info.Trusted = value == "yes"
		case "Blocked":
			info.Blocked = value == "yes"
		case "Connected":
			info.Connected = value == "yes"
		case "LegacyPairing":
			info.LegacyPairing = value == "yes"
		case "Battery Percentage":
			if strings.Contains(value, "0x") {
				parts := strings.Split(value, "(")
				if len(parts) == 2 {
					percentage := strings.TrimRight(parts[1], ")")
					if p, err := strconv.Atoi(percentage); err == nil {
						info.BatteryPercentage = p
					}
				}
			}
		}
	}

	info.Capabilities = NewCapabilitySet(uuids)
	return info
}
