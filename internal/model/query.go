package model

// QueryRequest updates the search box text
type QueryRequest struct {
	Query string `json:"query"`
}

// CheckRequest checks availability for one address. An empty Address
// checks the current search box text (the "submit" action).
type CheckRequest struct {
	Address string `json:"address"`
}

// OriginRequest updates the typed origin address; empty means device location
type OriginRequest struct {
	Address string `json:"address"`
}

// DeviceReport carries the browser's geolocation outcome. Either Position is
// set or Error is one of "denied" / "unavailable".
type DeviceReport struct {
	Position *Point `json:"position,omitempty"`
	Error    string `json:"error,omitempty" binding:"omitempty,oneof=denied unavailable"`
}

// RouteRequest asks for a route; Device optionally refreshes the device position first
type RouteRequest struct {
	Device *DeviceReport `json:"device,omitempty"`
}

// SessionResponse wraps a session id and its current state
type SessionResponse struct {
	SessionID string       `json:"session_id"`
	State     SessionState `json:"state"`
}
