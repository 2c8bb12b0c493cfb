package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelinehub/pkg/models"
)

type captureSink struct {
	titles       []string
	descriptions []string
	durations    []time.Duration
}

func (s *captureSink) Show(title, description string, duration time.Duration) {
	s.titles = append(s.titles, title)
	s.descriptions = append(s.descriptions, description)
	s.durations = append(s.durations, duration)
}

func activity(action, resourceType string) models.Activity {
	return models.Activity{
		ID:           "act-1",
		Action:       action,
		ResourceType: resourceType,
		ResourceName: "Annual Budget",
		Priority:     models.DerivedPriority(action),
	}
}

func TestShouldNotifyDefaultAllowList(t *testing.T) {
	prefs := Preferences{Enabled: true}

	// Only created and verified pass by default
	assert.True(t, ShouldNotify(activity(models.ActionCreated, models.ResourceDocument), prefs))
	assert.True(t, ShouldNotify(activity(models.ActionVerified, models.ResourceDocument), prefs))

	for _, action := range []string{models.ActionUpdated, models.ActionDeleted, models.ActionViewed, models.ActionDocumented, models.ActionAssigned} {
		assert.False(t, ShouldNotify(activity(action, models.ResourceDocument), prefs), action)
	}
}

func TestShouldNotifyDisabled(t *testing.T) {
	prefs := Preferences{Enabled: false, Actions: []string{models.ActionCreated}}
	assert.False(t, ShouldNotify(activity(models.ActionCreated, models.ResourceDocument), prefs))
}

func TestShouldNotifyCustomActions(t *testing.T) {
	prefs := Preferences{Enabled: true, Actions: []string{models.ActionDeleted}}
	assert.True(t, ShouldNotify(activity(models.ActionDeleted, models.ResourceDocument), prefs))
	assert.False(t, ShouldNotify(activity(models.ActionCreated, models.ResourceDocument), prefs))
}

func TestShouldNotifyResourceTypeGate(t *testing.T) {
	prefs := Preferences{Enabled: true, ResourceTypes: []string{models.ResourceWorkflow}}
	assert.True(t, ShouldNotify(activity(models.ActionCreated, models.ResourceWorkflow), prefs))
	assert.False(t, ShouldNotify(activity(models.ActionCreated, models.ResourceDocument), prefs))

	// Nil resource types matches everything
	open := Preferences{Enabled: true}
	assert.True(t, ShouldNotify(activity(models.ActionCreated, models.ResourceRole), open))
}

func TestDispatchShowsQualifyingToast(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, Preferences{Enabled: true})

	require.True(t, d.Dispatch(activity(models.ActionCreated, models.ResourceDocument)))
	require.Len(t, sink.titles, 1)
	assert.Equal(t, "✨ Created", sink.titles[0])
	assert.Equal(t, "document: Annual Budget", sink.descriptions[0])
	assert.Equal(t, DefaultDuration, sink.durations[0])
}

func TestDispatchGatedActivityShowsNothing(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, Preferences{Enabled: true})

	assert.False(t, d.Dispatch(activity(models.ActionViewed, models.ResourceDocument)))
	assert.Empty(t, sink.titles)
}

func TestDispatchFloodSuppression(t *testing.T) {
	sink := &captureSink{}
	d := NewDispatcher(sink, Preferences{Enabled: true})

	// Burst capacity is absorbed, the overflow is dropped not queued
	shown := 0
	for i := 0; i < burstSize*3; i++ {
		if d.Dispatch(activity(models.ActionCreated, models.ResourceDocument)) {
			shown++
		}
	}
	assert.LessOrEqual(t, shown, burstSize+1)
	assert.GreaterOrEqual(t, shown, burstSize)
	assert.Len(t, sink.titles, shown)
}

func TestCustomDuration(t *testing.T) {
	sink := &captureSink{}
	sticky := time.Duration(0)
	d := NewDispatcher(sink, Preferences{Enabled: true, Duration: &sticky})

	require.True(t, d.Dispatch(activity(models.ActionVerified, models.ResourceDocument)))
	// Explicit zero means no auto-dismiss
	assert.Equal(t, time.Duration(0), sink.durations[0])
}

func TestFormatTitleUnknownAction(t *testing.T) {
	a := activity("unknown", models.ResourceDocument)
	assert.Equal(t, "🔔 Unknown", FormatTitle(a))
}

func TestFormatDescriptionTruncatesName(t *testing.T) {
	a := activity(models.ActionCreated, models.ResourceDocument)
	a.ResourceName = strings.Repeat("x", 50)

	desc := FormatDescription(a)
	assert.Equal(t, "document: "+strings.Repeat("x", 30)+"...", desc)
}
