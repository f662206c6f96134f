package bluetooth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/usenocturne/headunitd/logger"
)

const pairedListing = `Agent registered
[bluetooth]# devices Paired
Device AA:BB:CC:DD:EE:01 SpeakerX
Device aa:bb:cc:dd:ee:02 Phone
[CHG] Device AA:BB:CC:DD:EE:03 RSSI: -60
Device AA:BB:CC:DD:EE:01 SpeakerX Pro
[bluetooth]# exit
`

// startupListing is what bluetoothctl prints when it replays its cache
// before the listing command runs.
const startupListing = `Agent registered
[NEW] Controller 00:1A:7D:DA:71:13 headunit [default]
[NEW] Device AA:BB:CC:DD:EE:77 SeenInScanOnly
[NEW] Device AA:BB:CC:DD:EE:01 Phone
[bluetooth]# devices Paired
Device AA:BB:CC:DD:EE:01 Phone
[CHG] Device AA:BB:CC:DD:EE:77 RSSI: -71
[DEL] Device AA:BB:CC:DD:EE:78 Gone
[bluetooth]# exit
`

func TestParseStartupNoise(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) []Device
		want  []Device
	}{
		{
			name:  "paired listing",
			parse: ParsePairedDevices,
			want:  []Device{{Address: "AA:BB:CC:DD:EE:01", Name: "Phone"}},
		},
		{
			name:  "scan listing",
			parse: ParseDevices,
			want: []Device{
				{Address: "AA:BB:CC:DD:EE:77", Name: "SeenInScanOnly"},
				{Address: "AA:BB:CC:DD:EE:01", Name: "Phone"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.parse(startupListing))
		})
	}
}

func TestParseDevices(t *testing.T) {
	devices := ParseDevices(pairedListing)

	require.Len(t, devices, 2)
	assert.Equal(t, Device{Address: "AA:BB:CC:DD:EE:01", Name: "SpeakerX Pro"}, devices[0])
	assert.Equal(t, Device{Address: "AA:BB:CC:DD:EE:02", Name: "Phone"}, devices[1])
}

func TestParseDevicesNameless(t *testing.T) {
	devices := ParseDevices("Device 11:22:33:44:55:66 11-22-33-44-55-66\nDevice 11:22:33:44:55:77\n")

	require.Len(t, devices, 2)
	assert.Empty(t, devices[0].Name)
	assert.Empty(t, devices[1].Name)
	assert.Empty(t, ParseDevices("No default controller available\n"))
}

func TestParseInfo(t *testing.T) {
	output := `Device AA:BB:CC:DD:EE:01 (public)
	Name: Pixel 7
	Alias: Pixel 7
	Class: 0x005a020c
	Icon: phone
	Paired: yes
	Bonded: yes
	Trusted: yes
	Blocked: no
	Connected: yes
	LegacyPairing: no
	UUID: Audio Source              (0000110a-0000-1000-8000-00805f9b34fb)
	UUID: A/V Remote Control        (0000110e-0000-1000-8000-00805f9b34fb)
	UUID: Handsfree Audio Gateway   (0000111f-0000-1000-8000-00805f9b34fb)
	UUID: Vendor specific           (a23d00bc-217c-123b-9c00-fc44577136ee)
	Battery Percentage: 0x5a (90)
`
	info := ParseInfo("AA:BB:CC:DD:EE:01", output)

	assert.Equal(t, "Pixel 7", info.Name)
	assert.Equal(t, "phone", info.Icon)
	assert.True(t, info.Paired)
	assert.True(t, info.Bonded)
	assert.True(t, info.Trusted)
	assert.False(t, info.Blocked)
	assert.True(t, info.Connected)
	assert.False(t, info.LegacyPairing)
	assert.Equal(t, 90, info.BatteryPercentage)
	assert.Equal(t, CapabilitySet{CAP_AUDIO_SOURCE, CAP_AVRCP, CAP_HANDSFREE_AG, "a23d00bc-217c-123b-9c00-fc44577136ee"}, info.Capabilities)
}

func TestListKnownDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	runner.EXPECT().
		Run(gomock.Any(), []Step{{Line: cmdPairedDevices, Wait: listSettle}, {Line: cmdExit}}).
		Return(pairedListing, nil)

	r := NewRegistry(runner, DefaultOptions(), logger.NewTestLogger())
	devices, err := r.ListKnownDevices(context.Background())
	require.NoError(t, err)

	require.Len(t, devices, 2)
	for _, d := range devices {
		assert.True(t, d.Paired)
	}
}

func TestListKnownDevicesIgnoresCachePreamble(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(startupListing, nil).Times(2)

	r := NewRegistry(runner, DefaultOptions(), logger.NewTestLogger())
	devices, err := r.ListKnownDevices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Device{{Address: "AA:BB:CC:DD:EE:01", Name: "Phone", Paired: true}}, devices)

	known, err := r.IsKnown(context.Background(), "AA:BB:CC:DD:EE:77")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestListKnownDevicesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return("", ErrTimeout)

	r := NewRegistry(runner, DefaultOptions(), logger.NewTestLogger())
	_, err := r.ListKnownDevices(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestIsKnown(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(pairedListing, nil).Times(2)

	r := NewRegistry(runner, DefaultOptions(), logger.NewTestLogger())

	known, err := r.IsKnown(context.Background(), "AA:BB:CC:DD:EE:02")
	require.NoError(t, err)
	assert.True(t, known)

	known, err = r.IsKnown(context.Background(), "AA:BB:CC:DD:EE:09")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestScanForDevices(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	window := 2 * time.Second
	gomock.InOrder(
		runner.EXPECT().
			Run(gomock.Any(), []Step{
				{Line: cmdScanOn, Wait: window},
				{Line: cmdScanOff},
				{Line: cmdDevices, Wait: listSettle},
				{Line: cmdExit},
			}).
			Return("Discovery started\n[NEW] Device AA:BB:CC:DD:EE:02 Phone\nDevice AA:BB:CC:DD:EE:02 Phone\nDevice AA:BB:CC:DD:EE:05 Car Kit\n", nil),
		runner.EXPECT().
			Run(gomock.Any(), gomock.Any()).
			Return(pairedListing, nil),
	)

	r := NewRegistry(runner, DefaultOptions(), logger.NewTestLogger())
	devices, err := r.ScanForDevices(context.Background(), window)
	require.NoError(t, err)

	require.Len(t, devices, 2)
	assert.Equal(t, "AA:BB:CC:DD:EE:02", devices[0].Address)
	assert.True(t, devices[0].Paired)
	assert.Equal(t, "Car Kit", devices[1].Name)
	assert.False(t, devices[1].Paired)
}

func TestScanForDevicesCachedDeviceNotPaired(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(startupListing, nil).Times(2)

	r := NewRegistry(runner, DefaultOptions(), logger.NewTestLogger())
	devices, err := r.ScanForDevices(context.Background(), time.Second)
	require.NoError(t, err)

	assert.Equal(t, []Device{
		{Address: "AA:BB:CC:DD:EE:77", Name: "SeenInScanOnly"},
		{Address: "AA:BB:CC:DD:EE:01", Name: "Phone", Paired: true},
	}, devices)
}

func TestScanForDevicesDefaultWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)

	opts := DefaultOptions()
	runner.EXPECT().
		Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, steps []Step) (string, error) {
			assert.Equal(t, opts.ScanWindow, steps[0].Wait)
			return "", nil
		})
	runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return("", ErrToolUnavailable)

	r := NewRegistry(runner, opts, logger.NewTestLogger())
	devices, err := r.ScanForDevices(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := NewMockRunner(ctrl)
	runner.EXPECT().
		Run(gomock.Any(), []Step{{Line: "info AA:BB:CC:DD:EE:01", Wait: listSettle}, {Line: cmdExit}}).
		Return("Device AA:BB:CC:DD:EE:01 (public)\n\tName: Phone\n\tConnected: no\n", nil)

	r := NewRegistry(runner, DefaultOptions(), logger.NewTestLogger())
	info, err := r.Info(context.Background(), "AA:BB:CC:DD:EE:01")
	require.NoError(t, err)
	assert.Equal(t, "Phone", info.Name)
	assert.False(t, info.Connected)
}
