package bluetooth

import (
	"net"
	"strings"
	"time"
)

// Device is a point-in-time snapshot of a peer as reported by the stack.
// Address is the only stable identity.
type Device struct {
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	Paired    bool   `json:"paired"`
	Trusted   bool   `json:"trusted"`
	Connected bool   `json:"connected"`
}

type DeviceInfo struct {
	Address           string        `json:"address"`
	Name              string        `json:"name"`
	Alias             string        `json:"alias"`
	Class             string        `json:"class"`
	Icon              string        `json:"icon"`
	Paired            bool          `json:"paired"`
	Bonded            bool          `json:"bonded"`
	Trusted           bool          `json:"trusted"`
	Blocked           bool          `json:"blocked"`
	Connected         bool          `json:"connected"`
	LegacyPairing     bool          `json:"legacyPairing"`
	BatteryPercentage int           `json:"batteryPercentage,omitempty"`
	Capabilities      CapabilitySet `json:"capabilities,omitempty"`
}

// CapabilitySet is an ordered, duplicate-free list of capability codes.
type CapabilitySet []string

// NewCapabilitySet shortens each UUID to its 16-bit code when it sits on
// the Bluetooth base UUID and keeps the first occurrence of every code.
func NewCapabilitySet(uuids []string) CapabilitySet {
	set := make(CapabilitySet, 0, len(uuids))
	seen := make(map[string]struct{}, len(uuids))
	for _, u := range uuids {
		code := shortUUID(u)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		set = append(set, code)
	}
	return set
}

func (c CapabilitySet) Has(code string) bool {
	for _, v := range c {
		if v == code {
			return true
		}
	}
	return false
}

func (c CapabilitySet) HasAny(codes ...string) bool {
	for _, code := range codes {
		if c.Has(code) {
			return true
		}
	}
	return false
}

func shortUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	if len(u) == 36 && strings.HasPrefix(u, bluetoothUUIDShort) && strings.HasSuffix(u, bluetoothBaseUUID) {
		return u[4:8]
	}
	if strings.HasPrefix(u, "0x") {
		return u[2:]
	}
	return u
}

// ActivationReport is advisory; it never changes the outcome of a connection.
type ActivationReport struct {
	Address         string        `json:"address"`
	Connected       bool          `json:"connected"`
	Capabilities    CapabilitySet `json:"capabilities"`
	CapabilityError string        `json:"capabilityError,omitempty"`
	MediaActivated  bool          `json:"mediaActivated"`
	MediaError      string        `json:"mediaError,omitempty"`
	AVRCP           bool          `json:"avrcp"`
	HandsFree       bool          `json:"handsFree"`
}

type Flow string

const (
	FlowUnknown      Flow = ""
	FlowPairedDirect Flow = "paired-direct"
	FlowNewPairing   Flow = "new-pairing"
)

type State string

const (
	StateIdle               State = "idle"
	StateDisconnecting      State = "disconnecting"
	StatePairingNew         State = "pairing-new"
	StateConnectingDirect   State = "connecting-direct"
	StateActivatingProfiles State = "activating-profiles"
	StateConnected          State = "connected"
	StateFailed             State = "failed"
)

func (s State) Terminal() bool {
	return s == StateConnected || s == StateFailed
}

// ConnectionAttempt is owned by a single Connect invocation.
type ConnectionAttempt struct {
	ID            string            `json:"id"`
	TargetAddress string            `json:"address"`
	Flow          Flow              `json:"flow"`
	State         State             `json:"state"`
	Started       time.Time         `json:"started"`
	Report        *ActivationReport `json:"report,omitempty"`
	Err           error             `json:"-"`
}

func (a *ConnectionAttempt) Succeeded() bool {
	return a.State == StateConnected
}

// ParseAddress returns the canonical upper-case colon form of a 6-byte
// hardware address.
func ParseAddress(s string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil || len(hw) != 6 {
		return "", ErrInvalidAddress
	}
	return strings.ToUpper(hw.String()), nil
}
