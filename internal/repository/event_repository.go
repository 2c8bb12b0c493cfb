// Package repository - in-memory stores backing the development server.
// The production backend owns real persistence; this mirror exists so
// the dashboard has something to talk to locally.
package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"timelinehub/pkg/models"
)

// EventRepository stores timeline events hash-chained in insert order
type EventRepository interface {
	Create(ctx context.Context, event *models.TimelineEvent) error
	GetByID(ctx context.Context, id string) (*models.TimelineEvent, error)
	List(ctx context.Context) ([]models.TimelineEvent, error)
	Update(ctx context.Context, event *models.TimelineEvent) error
	Remove(ctx context.Context, id string) error
	// Verify recomputes the chain up to the given event and reports
	// whether the stored hashes still line up.
	Verify(ctx context.Context, id string) (bool, error)
}

type memoryEventRepository struct {
	mu     sync.RWMutex
	events []models.TimelineEvent
	index  map[string]int
}

// NewEventRepository creates an empty in-memory event repository
func NewEventRepository() EventRepository {
	return &memoryEventRepository{
		index: make(map[string]int),
	}
}

// chainHash links an event to its predecessor
func chainHash(prev string, e *models.TimelineEvent) string {
	h := sha256.New()
	h.Write([]byte(prev))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.OccurredAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

func (r *memoryEventRepository) Create(ctx context.Context, event *models.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[event.ID]; exists {
		return fmt.Errorf("event %s: %w", event.ID, models.ErrInvalidInput)
	}

	prev := ""
	if n := len(r.events); n > 0 {
		prev = r.events[n-1].Hash
	}
	event.Hash = chainHash(prev, event)

	r.index[event.ID] = len(r.events)
	r.events = append(r.events, *event)
	return nil
}

func (r *memoryEventRepository) GetByID(ctx context.Context, id string) (*models.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, models.ErrEventNotFound
	}
	event := r.events[i]
	return &event, nil
}

func (r *memoryEventRepository) List(ctx context.Context) ([]models.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.TimelineEvent(nil), r.events...), nil
}

// Update rewrites the payload of an existing event. The chain hash is
// left as recorded; mutating history is a dev-server convenience only.
func (r *memoryEventRepository) Update(ctx context.Context, event *models.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[event.ID]
	if !ok {
		return models.ErrEventNotFound
	}
	event.Hash = r.events[i].Hash
	r.events[i] = *event
	return nil
}

func (r *memoryEventRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return models.ErrEventNotFound
	}
	r.events = append(r.events[:i], r.events[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.events); j++ {
		r.index[r.events[j].ID] = j
	}
	return nil
}

func (r *memoryEventRepository) Verify(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	target, ok := r.index[id]
	if !ok {
		return false, models.ErrEventNotFound
	}

	prev := ""
	for i := 0; i <= target; i++ {
		e := r.events[i]
		if chainHash(prev, &e) != e.Hash {
			return false, nil
		}
		prev = e.Hash
	}
	return true, nil
}
