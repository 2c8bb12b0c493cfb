package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"timelinehub/pkg/models"
)

func sampleActivity() models.Activity {
	return models.Activity{
		ID:           "act-1",
		UserID:       "user-7",
		Action:       models.ActionCreated,
		ResourceType: models.ResourceDocument,
		ResourceID:   "doc-9",
		ResourceName: "Quarterly Report",
		Timestamp:    time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
		Priority:     models.PriorityMedium,
		Description:  "Quarterly report uploaded",
	}
}

func TestMatchesEmptyCriteria(t *testing.T) {
	assert.True(t, Matches(sampleActivity(), models.FilterCriteria{}))
}

func TestMatchesActions(t *testing.T) {
	a := sampleActivity()
	assert.True(t, Matches(a, models.FilterCriteria{Actions: []string{models.ActionCreated, models.ActionDeleted}}))
	assert.False(t, Matches(a, models.FilterCriteria{Actions: []string{models.ActionDeleted}}))
}

func TestMatchesResourceTypes(t *testing.T) {
	a := sampleActivity()
	assert.True(t, Matches(a, models.FilterCriteria{ResourceTypes: []string{models.ResourceDocument}}))
	assert.False(t, Matches(a, models.FilterCriteria{ResourceTypes: []string{models.ResourceWorkflow}}))
}

func TestMatchesDateRangeInclusive(t *testing.T) {
	a := sampleActivity()
	exact := a.Timestamp

	// Boundaries are inclusive on both ends
	assert.True(t, Matches(a, models.FilterCriteria{DateFrom: &exact, DateTo: &exact}))

	after := exact.Add(time.Second)
	assert.False(t, Matches(a, models.FilterCriteria{DateFrom: &after}))

	before := exact.Add(-time.Second)
	assert.False(t, Matches(a, models.FilterCriteria{DateTo: &before}))
}

func TestMatchesUserID(t *testing.T) {
	a := sampleActivity()
	assert.True(t, Matches(a, models.FilterCriteria{UserID: "user-7"}))
	assert.False(t, Matches(a, models.FilterCriteria{UserID: "user-8"}))
}

func TestMatchesPriorities(t *testing.T) {
	a := sampleActivity()
	assert.True(t, Matches(a, models.FilterCriteria{Priorities: []string{models.PriorityMedium}}))
	assert.False(t, Matches(a, models.FilterCriteria{Priorities: []string{models.PriorityHigh}}))
}

func TestMatchesSearch(t *testing.T) {
	a := sampleActivity()

	// Case-insensitive substring over name, description and resource id
	assert.True(t, Matches(a, models.FilterCriteria{Search: "quarterly"}))
	assert.True(t, Matches(a, models.FilterCriteria{Search: "REPORT"}))
	assert.True(t, Matches(a, models.FilterCriteria{Search: "doc-9"}))
	assert.True(t, Matches(a, models.FilterCriteria{Search: "uploaded"}))
	assert.False(t, Matches(a, models.FilterCriteria{Search: "invoice"}))
}

func TestMatchesAllCriteriaAreANDed(t *testing.T) {
	a := sampleActivity()
	c := models.FilterCriteria{
		Actions: []string{models.ActionCreated},
		UserID:  "user-7",
		Search:  "quarterly",
	}
	assert.True(t, Matches(a, c))

	// One failing criterion fails the whole match
	c.UserID = "someone-else"
	assert.False(t, Matches(a, c))
}

func TestApplyPreservesOrderAndIsIdempotent(t *testing.T) {
	items := []models.Activity{}
	for _, id := range []string{"a", "b", "c", "d"} {
		a := sampleActivity()
		a.ID = id
		if id == "b" {
			a.Action = models.ActionDeleted
		}
		items = append(items, a)
	}

	c := models.FilterCriteria{Actions: []string{models.ActionCreated}}
	once := Apply(items, c)
	assert.Equal(t, []string{"a", "c", "d"}, idsOf(once))

	twice := Apply(once, c)
	assert.Equal(t, idsOf(once), idsOf(twice))
}

func TestApplyEmptyCriteriaIsIdentity(t *testing.T) {
	items := []models.Activity{sampleActivity()}
	out := Apply(items, models.FilterCriteria{})
	assert.Equal(t, items, out)
}

func idsOf(items []models.Activity) []string {
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID)
	}
	return ids
}
