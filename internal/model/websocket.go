package model

// WebSocket message types
const (
	WSMessageTypeState = "state"
	WSMessageTypeError = "error"
	WSMessageTypePing  = "ping"
	WSMessageTypePong  = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStateMessage carries a signal state transition
type WSStateMessage struct {
	Type     string      `json:"type"`
	SignalID string      `json:"signalId"`
	State    SignalState `json:"state"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type     string  `json:"type"`
	SignalID string  `json:"signalId"`
	Error    WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
