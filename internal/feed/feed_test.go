package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timelinehub/pkg/models"
)

type stubSource struct {
	mu     sync.Mutex
	events []models.TimelineEvent
	err    error
	calls  int
}

func (s *stubSource) ListAllEvents(ctx context.Context, filter *models.FilterCriteria) ([]models.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.TimelineEvent(nil), s.events...), nil
}

func (s *stubSource) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var testBase = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

// makeEvents returns n events, newest first by OccurredAt
func makeEvents(n int) []models.TimelineEvent {
	events := make([]models.TimelineEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, models.TimelineEvent{
			ID:         fmt.Sprintf("evt-%d", i),
			SubjectID:  "subject-1",
			Type:       "document.uploaded",
			OccurredAt: testBase.Add(-time.Duration(i) * time.Minute),
			Payload:    map[string]any{"title": fmt.Sprintf("Document %d", i)},
		})
	}
	return events
}

func TestFetchFirstPage(t *testing.T) {
	src := &stubSource{events: makeEvents(45)}
	f := New(src, 20)

	require.NoError(t, f.Fetch(context.Background()))

	items := f.Items()
	assert.Len(t, items, 20)
	assert.Equal(t, 45, f.Total())
	assert.True(t, f.HasMore())
	assert.False(t, f.LastFetch().IsZero())
	assert.NoError(t, f.Err())

	// Newest first
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].Timestamp.After(items[i-1].Timestamp),
			"item %d newer than item %d", i, i-1)
	}
}

func TestFetchSortIsStable(t *testing.T) {
	events := makeEvents(3)
	// Same timestamp on all three: arrival order must survive the sort
	for i := range events {
		events[i].OccurredAt = testBase
	}
	src := &stubSource{events: events}
	f := New(src, 20)

	require.NoError(t, f.Fetch(context.Background()))
	assert.Equal(t, []string{"evt-0", "evt-1", "evt-2"}, idsOf(f.Items()))
}

func TestFetchErrorPreservesItems(t *testing.T) {
	src := &stubSource{events: makeEvents(5)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))
	before := f.Items()

	src.setError(errors.New("backend down"))
	err := f.Fetch(context.Background())
	require.Error(t, err)

	// Prior items stay visible, error is surfaced separately
	assert.Equal(t, before, f.Items())
	assert.Error(t, f.Err())

	// A later success clears the error
	src.setError(nil)
	require.NoError(t, f.Fetch(context.Background()))
	assert.NoError(t, f.Err())
}

func TestFetchMorePagesWithoutDuplicates(t *testing.T) {
	src := &stubSource{events: makeEvents(45)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))

	require.NoError(t, f.FetchMore(context.Background()))
	assert.Len(t, f.Items(), 40)
	assert.True(t, f.HasMore())

	require.NoError(t, f.FetchMore(context.Background()))
	assert.Len(t, f.Items(), 45)
	assert.False(t, f.HasMore())

	seen := map[string]bool{}
	for _, a := range f.Items() {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}

	// Exhausted: further calls never hit the source
	calls := src.callCount()
	require.NoError(t, f.FetchMore(context.Background()))
	assert.Equal(t, calls, src.callCount())
	assert.Len(t, f.Items(), 45)
}

func TestFetchMoreDedupesShiftedCandidates(t *testing.T) {
	src := &stubSource{events: makeEvents(30)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))

	// A new event lands between pages, shifting every offset by one.
	// The second page then overlaps the first by one entry.
	src.mu.Lock()
	fresh := models.TimelineEvent{
		ID:         "evt-new",
		SubjectID:  "subject-1",
		Type:       "document.uploaded",
		OccurredAt: testBase.Add(time.Minute),
	}
	src.events = append([]models.TimelineEvent{fresh}, src.events...)
	src.mu.Unlock()

	require.NoError(t, f.FetchMore(context.Background()))

	seen := map[string]bool{}
	for _, a := range f.Items() {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
	// Item count never decreases across FetchMore
	assert.GreaterOrEqual(t, len(f.Items()), 20)
}

func TestFetchMoreNoopWithoutMore(t *testing.T) {
	src := &stubSource{events: makeEvents(5)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))
	assert.False(t, f.HasMore())

	calls := src.callCount()
	require.NoError(t, f.FetchMore(context.Background()))
	assert.Equal(t, calls, src.callCount())
}

func TestRefreshAppliesNewFilter(t *testing.T) {
	events := makeEvents(10)
	events[3].Payload = map[string]any{"title": "Incident Review"}
	src := &stubSource{events: events}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))
	assert.Len(t, f.Items(), 10)

	f.SetFilter(models.FilterCriteria{Search: "incident"})
	require.NoError(t, f.Refresh(context.Background()))

	items := f.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "evt-3", items[0].ID)
	assert.Equal(t, 1, f.Total())
	assert.False(t, f.HasMore())
}

func TestAddActivityPrepends(t *testing.T) {
	src := &stubSource{events: makeEvents(3)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))

	a := models.Activity{ID: "act-live", Action: models.ActionCreated, ResourceType: models.ResourceEvent}
	f.AddActivity(a)

	items := f.Items()
	assert.Equal(t, "act-live", items[0].ID)
	assert.Len(t, items, 4)
	assert.Equal(t, 4, f.Total())
}

func TestUpdateActivityAppliesPatch(t *testing.T) {
	src := &stubSource{events: makeEvents(3)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))

	name := "Renamed Document"
	ok := f.UpdateActivity("evt-1", models.ActivityPatch{ResourceName: &name})
	require.True(t, ok)

	var found models.Activity
	for _, a := range f.Items() {
		if a.ID == "evt-1" {
			found = a
		}
	}
	assert.Equal(t, "Renamed Document", found.ResourceName)
	// Unpatched fields untouched
	assert.NotEmpty(t, found.Description)

	assert.False(t, f.UpdateActivity("evt-missing", models.ActivityPatch{ResourceName: &name}))
}

func TestReplaceActivity(t *testing.T) {
	src := &stubSource{events: makeEvents(3)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))

	replacement := models.Activity{
		ID:           "evt-1",
		Action:       models.ActionUpdated,
		ResourceType: models.ResourceEvent,
		ResourceName: "Fully Replaced",
	}
	require.True(t, f.ReplaceActivity(replacement))

	for _, a := range f.Items() {
		if a.ID == "evt-1" {
			assert.Equal(t, "Fully Replaced", a.ResourceName)
			assert.Equal(t, models.ActionUpdated, a.Action)
		}
	}

	assert.False(t, f.ReplaceActivity(models.Activity{ID: "nope"}))
}

func TestRemoveActivity(t *testing.T) {
	src := &stubSource{events: makeEvents(3)}
	f := New(src, 20)
	require.NoError(t, f.Fetch(context.Background()))

	require.True(t, f.RemoveActivity("evt-1"))
	assert.Len(t, f.Items(), 2)
	assert.Equal(t, 2, f.Total())
	for _, a := range f.Items() {
		assert.NotEqual(t, "evt-1", a.ID)
	}

	assert.False(t, f.RemoveActivity("evt-1"))
}

func TestNewClampsLimit(t *testing.T) {
	src := &stubSource{events: makeEvents(150)}

	for _, limit := range []int{0, -5, 101} {
		f := New(src, limit)
		require.NoError(t, f.Fetch(context.Background()))
		assert.Len(t, f.Items(), DefaultLimit, "limit %d", limit)
	}
}
