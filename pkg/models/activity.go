package models

import (
	"fmt"
	"time"
)

// Activity action constants - closed vocabulary, unknown values are a data error
const (
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionViewed     = "viewed"
	ActionDocumented = "documented"
	ActionVerified   = "verified"
	ActionAssigned   = "assigned"
)

// Resource type constants - closed vocabulary
const (
	ResourceEvent      = "event"
	ResourceSubject    = "subject"
	ResourceDocument   = "document"
	ResourceWorkflow   = "workflow"
	ResourcePermission = "permission"
	ResourceRole       = "role"
)

// Priority levels
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ActionConfig holds per-action presentation and priority settings
type ActionConfig struct {
	Priority string
	Icon     string
}

// ActivityConfig is the fixed action -> priority/icon lookup table.
// Priority is always derived from this table, never set independently.
var ActivityConfig = map[string]ActionConfig{
	ActionCreated:    {Priority: PriorityMedium, Icon: "✨"},
	ActionUpdated:    {Priority: PriorityLow, Icon: "✏️"},
	ActionDeleted:    {Priority: PriorityHigh, Icon: "🗑️"},
	ActionViewed:     {Priority: PriorityLow, Icon: "👁️"},
	ActionDocumented: {Priority: PriorityMedium, Icon: "📄"},
	ActionVerified:   {Priority: PriorityHigh, Icon: "✅"},
	ActionAssigned:   {Priority: PriorityMedium, Icon: "👤"},
}

// DerivedPriority returns the priority for an action per ActivityConfig.
// Unknown actions map to low so a bad producer cannot escalate severity.
func DerivedPriority(action string) string {
	if cfg, ok := ActivityConfig[action]; ok {
		return cfg.Priority
	}
	return PriorityLow
}

// ValidAction reports whether action belongs to the closed vocabulary
func ValidAction(action string) bool {
	_, ok := ActivityConfig[action]
	return ok
}

// ValidResourceType reports whether rt belongs to the closed vocabulary
func ValidResourceType(rt string) bool {
	switch rt {
	case ResourceEvent, ResourceSubject, ResourceDocument,
		ResourceWorkflow, ResourcePermission, ResourceRole:
		return true
	}
	return false
}

// Activity represents one notable occurrence in the timeline product.
// Immutable once constructed; feed mutation replaces whole records.
type Activity struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Action       string         `json:"action" validate:"required,oneof=created updated deleted viewed documented verified assigned"`
	ResourceType string         `json:"resource_type" validate:"required,oneof=event subject document workflow permission role"`
	ResourceID   string         `json:"resource_id"`
	ResourceName string         `json:"resource_name"`
	Timestamp    time.Time      `json:"timestamp"`
	Priority     string         `json:"priority"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Description  string         `json:"description,omitempty"`
}

// Validate checks the closed vocabularies. Used at decode boundaries;
// an unrecognized action or resource type is a data error, not coerced.
func (a *Activity) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity: missing id")
	}
	if !ValidAction(a.Action) {
		return fmt.Errorf("activity %s: invalid action %q", a.ID, a.Action)
	}
	if !ValidResourceType(a.ResourceType) {
		return fmt.Errorf("activity %s: invalid resource type %q", a.ID, a.ResourceType)
	}
	return nil
}

// ActivityPatch carries a partial update for an existing activity.
// Nil fields are left untouched by Feed.UpdateActivity.
type ActivityPatch struct {
	ResourceName *string         `json:"resource_name,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Metadata     *map[string]any `json:"metadata,omitempty"`
}

// TimelineEvent is a raw domain event as returned by the backend.
// The hash field is opaque here; chain verification happens server-side.
type TimelineEvent struct {
	ID         string         `json:"id"`
	SubjectID  string         `json:"subject_id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
	Hash       string         `json:"hash,omitempty"`
}

const subjectIDPreview = 8

// ActivityFromEvent converts a raw timeline event into an Activity.
// Best effort: malformed input still yields a usable record, never an error.
// Events always surface as action=created on resource type event at low priority.
func ActivityFromEvent(e TimelineEvent) Activity {
	subject := e.SubjectID
	if len(subject) > subjectIDPreview {
		subject = subject[:subjectIDPreview]
	}

	eventType := e.Type
	if eventType == "" {
		eventType = "event"
	}

	desc := fmt.Sprintf("%s recorded for subject %s", eventType, subject)
	if subject == "" {
		desc = fmt.Sprintf("%s recorded", eventType)
	}

	name := eventType
	if title, ok := e.Payload["title"].(string); ok && title != "" {
		name = title
	}

	return Activity{
		ID:           e.ID,
		UserID:       e.SubjectID,
		Action:       ActionCreated,
		ResourceType: ResourceEvent,
		ResourceID:   e.ID,
		ResourceName: name,
		Timestamp:    e.OccurredAt,
		Priority:     PriorityLow,
		Metadata:     e.Payload,
		Description:  desc,
	}
}
