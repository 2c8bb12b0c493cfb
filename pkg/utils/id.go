package utils

import (
	"fmt"
	"sync"
	"time"
)

// GenerateID creates prefixed sequential IDs
// Format: prefix-timestamp-counter (e.g., "evt-1705612800000-001")
func GenerateID(prefix string) string {
	timestamp := time.Now().UnixMilli()
	counter := atomicCounter()
	return fmt.Sprintf("%s-%d-%03d", prefix, timestamp, counter)
}

// GenerateEventID creates timeline-event-specific ID
func GenerateEventID() string {
	return GenerateID("evt")
}

// atomicCounter provides thread-safe sequential counters
var (
	counter int64
	mu      sync.Mutex
)

func atomicCounter() int {
	mu.Lock()
	defer mu.Unlock()
	counter++
	return int(counter)
}
