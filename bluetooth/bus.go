package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// DeviceBus is the object/property query surface of the stack.
type DeviceBus interface {
	Connected(ctx context.Context, address string) (bool, error)
	UUIDs(ctx context.Context, address string) ([]string, error)
	// PlayerCommand invokes a MediaPlayer1 method (Play, Pause, ...) on
	// the device's player endpoint.
	PlayerCommand(ctx context.Context, address string, method string) error
}

var errNoBus = errors.New("system bus unavailable")

// SystemBus talks to BlueZ over the D-Bus system bus.
type SystemBus struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
}

func NewSystemBus() (*SystemBus, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	adapter, err := findDefaultAdapter(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to find bluetooth adapter: %w", err)
	}

	return &SystemBus{conn: conn, adapter: adapter}, nil
}

func findDefaultAdapter(conn *dbus.Conn) (dbus.ObjectPath, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	obj := conn.Object(BLUEZ_BUS_NAME, "/")
	if err := obj.Call(DBUS_OBJECT_MANAGER_INTERFACE+".GetManagedObjects", 0).Store(&objects); err != nil {
		return "", fmt.Errorf("failed to get managed objects: %w", err)
	}

	var found []dbus.ObjectPath
	for path, interfaces := range objects {
		if _, ok := interfaces[BLUEZ_ADAPTER_INTERFACE]; ok {
			found = append(found, path)
		}
	}
	if len(found) == 0 {
		return "", errors.New("no bluetooth adapter found")
	}

	for _, path := range found {
		if path == BLUEZ_DEFAULT_ADAPTER_PATH {
			return path, nil
		}
	}
	return found[0], nil
}

func (b *SystemBus) Adapter() dbus.ObjectPath {
	return b.adapter
}

func (b *SystemBus) Close() error {
	return b.conn.Close()
}

func formatDevicePath(adapter dbus.ObjectPath, address string) dbus.ObjectPath {
	formattedAddress := strings.ReplaceAll(strings.ToUpper(address), ":", "_")
	return dbus.ObjectPath(fmt.Sprintf("%s/dev_%s", adapter, formattedAddress))
}

// addressFromPath maps .../dev_XX_XX_XX_XX_XX_XX[/child] to XX:XX:...
func addressFromPath(path dbus.ObjectPath) string {
	s := string(path)
	idx := strings.LastIndex(s, "/dev_")
	if idx < 0 {
		return ""
	}
	s = s[idx+len("/dev_"):]
	if end := strings.IndexByte(s, '/'); end >= 0 {
		s = s[:end]
	}
	return strings.ReplaceAll(s, "_", ":")
}

func (b *SystemBus) deviceProperty(ctx context.Context, address, name string) (dbus.Variant, error) {
	obj := b.conn.Object(BLUEZ_BUS_NAME, formatDevicePath(b.adapter, address))
	var v dbus.Variant
	err := obj.CallWithContext(ctx, DBUS_PROPERTIES_INTERFACE+".Get", 0, BLUEZ_DEVICE_INTERFACE, name).Store(&v)
	return v, err
}

func (b *SystemBus) Connected(ctx context.Context, address string) (bool, error) {
	v, err := b.deviceProperty(ctx, address, "Connected")
	if err != nil {
		return false, fmt.Errorf("failed to read Connected: %w", err)
	}
	connected, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected Connected type %s", v.Signature())
	}
	return connected, nil
}

func (b *SystemBus) UUIDs(ctx context.Context, address string) ([]string, error) {
	v, err := b.deviceProperty(ctx, address, "UUIDs")
	if err != nil {
		return nil, fmt.Errorf("failed to read UUIDs: %w", err)
	}
	uuids, ok := v.Value().([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected UUIDs type %s", v.Signature())
	}
	return uuids, nil
}

func (b *SystemBus) PlayerCommand(ctx context.Context, address string, method string) error {
	path := dbus.ObjectPath(string(formatDevicePath(b.adapter, address)) + "/" + BLUEZ_PLAYER_NODE)
	obj := b.conn.Object(BLUEZ_BUS_NAME, path)
	if err := obj.CallWithContext(ctx, BLUEZ_MEDIA_PLAYER_INTERFACE+"."+method, 0).Err; err != nil {
		return fmt.Errorf("failed to %s on %s: %w", method, path, err)
	}
	return nil
}

// offlineBus stands in when the system bus cannot be reached.
type offlineBus struct{}

func (offlineBus) Connected(context.Context, string) (bool, error)     { return false, errNoBus }
func (offlineBus) UUIDs(context.Context, string) ([]string, error)     { return nil, errNoBus }
func (offlineBus) PlayerCommand(context.Context, string, string) error { return errNoBus }
