package models

import "time"

// APIResponse is the generic envelope returned by the backend REST API
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventListResponse is the bulk-read payload for timeline events.
// The backend returns the full candidate set; pagination is client-side.
type EventListResponse struct {
	Events []TimelineEvent `json:"events"`
	Total  int             `json:"total"`
}

// VerifyResponse reports the server-side hash-chain check for an event.
// Consumed as an opaque verdict; the chain algorithm lives server-side.
type VerifyResponse struct {
	EventID   string    `json:"event_id"`
	Verified  bool      `json:"verified"`
	CheckedAt time.Time `json:"checked_at"`
}
