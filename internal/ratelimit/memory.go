package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is the process-local fixed-window implementation. State is
// not shared across replicas, which is acceptable for abuse mitigation.
type MemoryLimiter struct {
	config  Config
	entries map[string]*windowEntry
	mu      sync.Mutex
	now     func() time.Time
}

func NewMemoryLimiter(config Config) *MemoryLimiter {
	l := &MemoryLimiter{
		config:  config,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}

	go l.cleanupEntries()

	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[key]
	if !exists || now.After(entry.resetAt) {
		l.entries[key] = &windowEntry{count: 1, resetAt: now.Add(l.config.Window)}
		return true, nil
	}

	if entry.count >= l.config.MaxAttempts {
		return false, nil
	}

	entry.count++
	return true, nil
}

func (l *MemoryLimiter) cleanupEntries() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := l.now()

		l.mu.Lock()
		for key, entry := range l.entries {
			if now.After(entry.resetAt) {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
