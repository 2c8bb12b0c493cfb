package models

import (
	"encoding/json"
	"time"
)

// Stream message types - inbound (server -> client)
const (
	StreamActivityCreated = "activity_created"
	StreamActivityUpdated = "activity_updated"
	StreamActivityRemoved = "activity_removed"
	StreamError           = "error"
)

// Stream message types - outbound (client -> server)
const (
	StreamSubscribe   = "subscribe"
	StreamUnsubscribe = "unsubscribe"
)

// StreamMessage is the wire frame on the activity stream channel.
// Data holds a full Activity for created/updated and a RemovedRef for removed.
type StreamMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Filters   *FilterCriteria `json:"filters,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// RemovedRef is the payload of an activity_removed message
type RemovedRef struct {
	ID string `json:"id"`
}

// FilterCriteria scopes a feed or subscription. All fields optional,
// combined by logical AND; an absent criterion always passes.
type FilterCriteria struct {
	Actions       []string   `json:"actions,omitempty"`
	ResourceTypes []string   `json:"resource_types,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	UserID        string     `json:"user_id,omitempty"`
	Priorities    []string   `json:"priorities,omitempty"`
	Search        string     `json:"search,omitempty"`
}

// IsEmpty reports whether no criterion is set
func (c FilterCriteria) IsEmpty() bool {
	return len(c.Actions) == 0 &&
		len(c.ResourceTypes) == 0 &&
		c.DateFrom == nil &&
		c.DateTo == nil &&
		c.UserID == "" &&
		len(c.Priorities) == 0 &&
		c.Search == ""
}
