package bluetooth

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

type LinkEventKind string

const (
	LinkDeviceConnected    LinkEventKind = "device-connected"
	LinkDeviceDisconnected LinkEventKind = "device-disconnected"
	LinkNetworkDown        LinkEventKind = "network-down"
)

type LinkEvent struct {
	Kind      LinkEventKind
	Address   string
	Interface string
}

// LinkMonitor reports link changes from the stack and from the tethering
// interface on one channel. Run is the only producer.
type LinkMonitor struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	iface   string
	events  chan LinkEvent
	log     zerolog.Logger
}

func NewLinkMonitor(bus *SystemBus, log zerolog.Logger) *LinkMonitor {
	return &LinkMonitor{
		conn:    bus.conn,
		adapter: bus.adapter,
		iface:   TETHER_INTERFACE,
		events:  make(chan LinkEvent, 16),
		log:     log,
	}
}

func (m *LinkMonitor) Events() <-chan LinkEvent {
	return m.events
}

// Run blocks until ctx is done. The events channel is closed on return.
func (m *LinkMonitor) Run(ctx context.Context) error {
	defer close(m.events)

	match := []dbus.MatchOption{
		dbus.WithMatchInterface(DBUS_PROPERTIES_INTERFACE),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchPathNamespace(BLUEZ_OBJECT_PATH),
	}
	if err := m.conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}
	defer m.conn.RemoveMatchSignal(match...)

	signals := make(chan *dbus.Signal, 10)
	m.conn.Signal(signals)
	defer m.conn.RemoveSignal(signals)

	linkUpdates := make(chan netlink.LinkUpdate)
	done := make(chan struct{})
	defer close(done)
	if err := netlink.LinkSubscribe(linkUpdates, done); err != nil {
		m.log.Warn().Err(err).Msg("Failed to subscribe to link updates")
		linkUpdates = nil
	}

	for {
		var (
			ev LinkEvent
			ok bool
		)
		select {
		case <-ctx.Done():
			return nil
		case sig, open := <-signals:
			if !open {
				return nil
			}
			ev, ok = linkEventFromSignal(sig)
		case update, open := <-linkUpdates:
			if !open {
				linkUpdates = nil
				continue
			}
			ev, ok = linkEventFromUpdate(m.iface, update)
		}
		if !ok {
			continue
		}

		m.log.Info().Str("kind", string(ev.Kind)).Str("address", ev.Address).Str("interface", ev.Interface).Msg("Link changed")
		select {
		case m.events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

func linkEventFromSignal(sig *dbus.Signal) (LinkEvent, bool) {
	if sig == nil || sig.Name != DBUS_PROPERTIES_INTERFACE+".PropertiesChanged" || len(sig.Body) < 2 {
		return LinkEvent{}, false
	}
	iface, _ := sig.Body[0].(string)
	if iface != BLUEZ_DEVICE_INTERFACE {
		return LinkEvent{}, false
	}
	changes, _ := sig.Body[1].(map[string]dbus.Variant)
	v, ok := changes["Connected"]
	if !ok {
		return LinkEvent{}, false
	}
	connected, ok := v.Value().(bool)
	if !ok {
		return LinkEvent{}, false
	}

	kind := LinkDeviceDisconnected
	if connected {
		kind = LinkDeviceConnected
	}
	return LinkEvent{Kind: kind, Address: addressFromPath(sig.Path)}, true
}

func linkEventFromUpdate(iface string, update netlink.LinkUpdate) (LinkEvent, bool) {
	if update.Header.Type != unix.RTM_DELLINK || update.Link == nil || update.Link.Attrs().Name != iface {
		return LinkEvent{}, false
	}
	return LinkEvent{Kind: LinkNetworkDown, Interface: iface}, true
}
