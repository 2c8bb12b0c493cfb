package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"timelinehub/pkg/models"
)

// DefaultLimit is the page size used when none is configured
const DefaultLimit = 20

// Source is the bulk-read collaborator backing the feed. The backend
// returns the full candidate set; slicing happens client-side.
type Source interface {
	ListAllEvents(ctx context.Context, filter *models.FilterCriteria) ([]models.TimelineEvent, error)
}

// Feed aggregates activities with client-side pagination and filtering.
// Items are mutated by three independent actors (fetch completion,
// subscription pushes, local calls); every mutation is serialized
// behind the mutex.
type Feed struct {
	source Source
	limit  int

	mu        sync.Mutex
	items     []models.Activity
	hasMore   bool
	total     int
	lastFetch time.Time
	lastErr   error
	filter    models.FilterCriteria
	inFlight  int
}

// New creates an empty feed over the given source
func New(source Source, limit int) *Feed {
	if limit <= 0 || limit > 100 {
		limit = DefaultLimit
	}
	return &Feed{
		source: source,
		limit:  limit,
	}
}

// Fetch retrieves the full candidate set, converts raw events to
// activities, sorts newest-first, applies the current filter and
// replaces items with the first page. Concurrent calls are allowed;
// each completion replaces state atomically, so the last call to
// complete wins. On error prior items are left untouched.
func (f *Feed) Fetch(ctx context.Context) error {
	f.mu.Lock()
	criteria := f.filter
	f.inFlight++
	f.mu.Unlock()

	events, err := f.source.ListAllEvents(ctx, &criteria)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if err != nil {
		f.lastErr = fmt.Errorf("failed to fetch events: %w", err)
		return f.lastErr
	}

	candidates := f.buildCandidates(events, criteria)

	page := candidates
	if len(page) > f.limit {
		page = page[:f.limit]
	}
	f.items = append([]models.Activity(nil), page...)
	f.hasMore = len(candidates) > f.limit
	f.total = len(candidates)
	f.lastFetch = time.Now()
	f.lastErr = nil
	return nil
}

// FetchMore appends the next page. No-op when there is nothing more to
// load or a fetch is already in flight. The candidate set may have
// changed since the last call, so appended entries are deduped by id.
func (f *Feed) FetchMore(ctx context.Context) error {
	f.mu.Lock()
	if !f.hasMore || f.inFlight > 0 {
		f.mu.Unlock()
		return nil
	}
	criteria := f.filter
	offset := len(f.items)
	f.inFlight++
	f.mu.Unlock()

	events, err := f.source.ListAllEvents(ctx, &criteria)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if err != nil {
		f.lastErr = fmt.Errorf("failed to fetch more events: %w", err)
		return f.lastErr
	}

	candidates := f.buildCandidates(events, criteria)

	seen := make(map[string]struct{}, len(f.items))
	for _, a := range f.items {
		seen[a.ID] = struct{}{}
	}

	end := offset + f.limit
	if end > len(candidates) {
		end = len(candidates)
	}
	if offset < end {
		for _, a := range candidates[offset:end] {
			if _, dup := seen[a.ID]; dup {
				continue
			}
			f.items = append(f.items, a)
		}
	}

	f.hasMore = offset+f.limit < len(candidates)
	f.total = len(candidates)
	f.lastFetch = time.Now()
	f.lastErr = nil
	return nil
}

// Refresh resets pagination state and performs a fresh fetch
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	f.hasMore = false
	f.lastErr = nil
	f.mu.Unlock()
	return f.Fetch(ctx)
}

// AddActivity prepends a subscription-sourced activity and bumps total.
// The current filter is deliberately not consulted; callers that want
// filter-scoped inserts pre-filter with Matches before calling.
func (f *Feed) AddActivity(a models.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append([]models.Activity{a}, f.items...)
	f.total++
}

// UpdateActivity merges the patch into the matching item in place.
// No-op when the id is not present.
func (f *Feed) UpdateActivity(id string, patch models.ActivityPatch) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID != id {
			continue
		}
		if patch.ResourceName != nil {
			f.items[i].ResourceName = *patch.ResourceName
		}
		if patch.Description != nil {
			f.items[i].Description = *patch.Description
		}
		if patch.Metadata != nil {
			f.items[i].Metadata = *patch.Metadata
		}
		return true
	}
	return false
}

// ReplaceActivity swaps the matching item with a full record, as
// carried by activity_updated stream messages. No-op when absent.
func (f *Feed) ReplaceActivity(a models.Activity) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == a.ID {
			f.items[i] = a
			return true
		}
	}
	return false
}

// RemoveActivity deletes the matching item and decrements total.
// No-op when absent.
func (f *Feed) RemoveActivity(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			f.total--
			return true
		}
	}
	return false
}

// SetFilter replaces the active criteria. Takes effect on the next
// Fetch/Refresh; already-loaded items are not re-filtered.
func (f *Feed) SetFilter(c models.FilterCriteria) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = c
}

// Filter returns the active criteria
func (f *Feed) Filter() models.FilterCriteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter
}

// Items returns a snapshot copy of the current page set
func (f *Feed) Items() []models.Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Activity(nil), f.items...)
}

// HasMore reports whether another page is available
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// Total returns the count matching the current filter
func (f *Feed) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// LastFetch returns the completion time of the most recent successful fetch
func (f *Feed) LastFetch() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFetch
}

// Err returns the feed-level error from the last failed fetch, nil after
// success. Distinguishes empty-because-error from empty-because-no-data.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// buildCandidates converts, sorts newest-first (stable, ties keep
// arrival order) and filters the raw event set.
func (f *Feed) buildCandidates(events []models.TimelineEvent, c models.FilterCriteria) []models.Activity {
	activities := make([]models.Activity, 0, len(events))
	for _, e := range events {
		activities = append(activities, models.ActivityFromEvent(e))
	}
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	return Apply(activities, c)
}
