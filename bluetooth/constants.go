package bluetooth

import "time"

const (
	BLUEZ_BUS_NAME                  = "org.bluez"
	BLUEZ_ADAPTER_INTERFACE         = "org.bluez.Adapter1"
	BLUEZ_DEVICE_INTERFACE          = "org.bluez.Device1"
	BLUEZ_MEDIA_PLAYER_INTERFACE    = "org.bluez.MediaPlayer1"
	BLUEZ_MEDIA_TRANSPORT_INTERFACE = "org.bluez.MediaTransport1"
	BLUEZ_OBJECT_PATH               = "/org/bluez"
	BLUEZ_DEFAULT_ADAPTER_PATH      = "/org/bluez/hci0"
	BLUEZ_PLAYER_NODE               = "player0"

	DBUS_PROPERTIES_INTERFACE     = "org.freedesktop.DBus.Properties"
	DBUS_OBJECT_MANAGER_INTERFACE = "org.freedesktop.DBus.ObjectManager"

	TETHER_INTERFACE = "bnep0"
)

// Short capability codes, as they appear in the 16-bit slot of a
// Bluetooth base UUID (0000xxxx-0000-1000-8000-00805f9b34fb).
const (
	CAP_AUDIO_SOURCE   = "110a"
	CAP_AUDIO_SINK     = "110b"
	CAP_AVRCP_TARGET   = "110c"
	CAP_A2DP           = "110d"
	CAP_AVRCP          = "110e"
	CAP_HANDSFREE      = "111e"
	CAP_HANDSFREE_AG   = "111f"
	bluetoothBaseUUID  = "-0000-1000-8000-00805f9b34fb"
	bluetoothUUIDShort = "0000"
)

var (
	avrcpCapabilities     = []string{CAP_AVRCP, CAP_AVRCP_TARGET}
	handsFreeCapabilities = []string{CAP_HANDSFREE_AG, CAP_HANDSFREE}
)

const (
	DefaultBinary           = "bluetoothctl"
	DefaultPIN              = "0000"
	DefaultMaxPromptReplies = 10
	DefaultCacheDir         = "/var/lib/bluetooth"
	DefaultServiceName      = "bluetooth"

	DefaultListTimeout    = 10 * time.Second
	DefaultStepDelay      = 3 * time.Second
	DefaultPromptTimeout  = 10 * time.Second
	DefaultAgentTimeout   = 5 * time.Second
	DefaultPairTimeout    = 15 * time.Second
	DefaultTrustTimeout   = 10 * time.Second
	DefaultConnectTimeout = 20 * time.Second
	DefaultCloseGrace     = time.Second
	DefaultProbePause     = time.Second
	DefaultSpawnCheck     = 200 * time.Millisecond
	DefaultScanWindow     = 10 * time.Second
)

// Shell command vocabulary.
const (
	cmdExit          = "exit"
	cmdScanOn        = "scan on"
	cmdScanOff       = "scan off"
	cmdDevices       = "devices"
	cmdPairedDevices = "devices Paired"
	cmdDisconnect    = "disconnect"
	cmdAgent         = "agent NoInputNoOutput"
	cmdDefaultAgent  = "default-agent"
	cmdYes           = "yes"
	cmdPairableOff   = "pairable off"
	cmdDiscoverOff   = "discoverable off"
)

const (
	markerLinkActive   = "Connected: yes"
	markerDisconnected = "Successful disconnected"
)
