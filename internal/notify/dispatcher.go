// Package notify - Notification dispatch policy
// Decides which subscription events warrant a user-visible toast
package notify

import (
	"strings"
	"time"

	"golang.org/x/time/rate"

	"timelinehub/pkg/models"
	"timelinehub/pkg/utils"
)

const (
	// DefaultDuration is the toast auto-dismiss window
	DefaultDuration = 5 * time.Second

	// resourceNameLimit caps the resource name in toast descriptions
	resourceNameLimit = 30

	// Flood suppression: at most burstSize toasts at once, refilling
	// at perSecond. Excess notifications are dropped, not queued.
	perSecond = 5
	burstSize = 10
)

// DefaultActions is the opt-out action allow-list applied when the
// preferences do not configure one. Deliberately narrow.
var DefaultActions = []string{models.ActionCreated, models.ActionVerified}

// Sink receives formatted toasts. Fire-and-forget; no return value.
// A zero duration means the toast never auto-dismisses.
type Sink interface {
	Show(title, description string, duration time.Duration)
}

// Preferences controls which activities produce toasts.
// Nil Actions falls back to DefaultActions; nil ResourceTypes matches all.
// Nil Duration falls back to DefaultDuration; an explicit zero is sticky.
type Preferences struct {
	Enabled       bool
	Actions       []string
	ResourceTypes []string
	Duration      *time.Duration
}

// ShouldNotify reports whether the activity passes the preference gates:
// notifications enabled, action in the allow-list, resource type in the
// allow-list when one is configured.
func ShouldNotify(a models.Activity, prefs Preferences) bool {
	if !prefs.Enabled {
		return false
	}

	actions := prefs.Actions
	if actions == nil {
		actions = DefaultActions
	}
	if !containsString(actions, a.Action) {
		return false
	}

	if prefs.ResourceTypes != nil && !containsString(prefs.ResourceTypes, a.ResourceType) {
		return false
	}
	return true
}

// Dispatcher consumes subscription activities and pushes qualifying
// ones to the toast sink, applying formatting and flood suppression.
type Dispatcher struct {
	sink    Sink
	prefs   Preferences
	limiter *rate.Limiter
}

// NewDispatcher creates a dispatcher bound to an explicitly constructed
// sink, scoped to the session lifetime.
func NewDispatcher(sink Sink, prefs Preferences) *Dispatcher {
	return &Dispatcher{
		sink:    sink,
		prefs:   prefs,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burstSize),
	}
}

// SetPreferences replaces the active preferences
func (d *Dispatcher) SetPreferences(prefs Preferences) {
	d.prefs = prefs
}

// Dispatch runs the full policy for one activity: preference gates,
// flood suppression, then Notify. Returns whether a toast was shown.
func (d *Dispatcher) Dispatch(a models.Activity) bool {
	if !ShouldNotify(a, d.prefs) {
		return false
	}
	if !d.limiter.Allow() {
		return false
	}
	d.Notify(a)
	return true
}

// Notify formats the activity and shows it unconditionally
func (d *Dispatcher) Notify(a models.Activity) {
	duration := DefaultDuration
	if d.prefs.Duration != nil {
		duration = *d.prefs.Duration
	}
	d.sink.Show(FormatTitle(a), FormatDescription(a), duration)
}

// FormatTitle renders "<icon> <Capitalized action>"
func FormatTitle(a models.Activity) string {
	icon := "🔔"
	if cfg, ok := models.ActivityConfig[a.Action]; ok {
		icon = cfg.Icon
	}
	return icon + " " + capitalize(a.Action)
}

// FormatDescription renders "<resourceType>: <truncated resourceName>"
func FormatDescription(a models.Activity) string {
	return a.ResourceType + ": " + utils.Truncate(a.ResourceName, resourceNameLimit)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
