package utils

// WebSocket
type WebSocketEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

const (
	EventConnect           = "bluetooth/connect"
	EventConnectState      = "bluetooth/connect/state"
	EventDisconnect        = "bluetooth/disconnect"
	EventNetworkDisconnect = "bluetooth/network/disconnect"
	EventScan              = "bluetooth/scan"
)

type DeviceConnectedPayload struct {
	Address string `json:"address"`
}

type DeviceDisconnectedPayload struct {
	Address string `json:"address"`
}

type NetworkDisconnectedPayload struct {
	Interface string `json:"interface"`
}

type AttemptStatePayload struct {
	AttemptID string `json:"attemptId"`
	Address   string `json:"address"`
	Flow      string `json:"flow,omitempty"`
	State     string `json:"state"`
	Reason    string `json:"reason,omitempty"`
}

type ScannedDevicePayload struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	Paired  bool   `json:"paired"`
}

type ScanResultPayload struct {
	Devices []ScannedDevicePayload `json:"devices"`
}
