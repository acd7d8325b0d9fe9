package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage wraps a pipeline progress event for WebSocket delivery
type WSProgressMessage struct {
	Type  string        `json:"type"`
	Event ProgressEvent `json:"event"`
}
