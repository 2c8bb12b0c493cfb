// Package feed - Activity Feed Business Logic
// Client-side aggregation, filtering and pagination over the bulk event API
package feed

import (
	"strings"

	"timelinehub/pkg/models"
)

// Matches evaluates every present criterion against the activity.
// Empty criteria match everything. Evaluation short-circuits on the
// first failing criterion.
func Matches(a models.Activity, c models.FilterCriteria) bool {
	if len(c.Actions) > 0 && !containsString(c.Actions, a.Action) {
		return false
	}
	if len(c.ResourceTypes) > 0 && !containsString(c.ResourceTypes, a.ResourceType) {
		return false
	}
	if c.DateFrom != nil && a.Timestamp.Before(*c.DateFrom) {
		return false
	}
	if c.DateTo != nil && a.Timestamp.After(*c.DateTo) {
		return false
	}
	if c.UserID != "" && a.UserID != c.UserID {
		return false
	}
	if len(c.Priorities) > 0 && !containsString(c.Priorities, a.Priority) {
		return false
	}
	if c.Search != "" && !matchesSearch(a, c.Search) {
		return false
	}
	return true
}

// Apply returns the activities matching the criteria, preserving order
func Apply(items []models.Activity, c models.FilterCriteria) []models.Activity {
	if c.IsEmpty() {
		return items
	}
	out := make([]models.Activity, 0, len(items))
	for _, a := range items {
		if Matches(a, c) {
			out = append(out, a)
		}
	}
	return out
}

// matchesSearch does case-insensitive substring matching against the
// resource name, description and resource id. No fuzzing or tokenization.
func matchesSearch(a models.Activity, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(a.ResourceName), q) ||
		strings.Contains(strings.ToLower(a.Description), q) ||
		strings.Contains(strings.ToLower(a.ResourceID), q)
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
