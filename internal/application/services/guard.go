package services

import (
	"context"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-billing/internal/application"
)

// LocalGuard is an in-process CommandGuard for single-instance deployments
// and tests. Entries expire after their TTL like the Redis guard.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]time.Time
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]time.Time)}
}

func (g *LocalGuard) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if until, ok := g.held[key]; ok && now.Before(until) {
		return nil, application.NewCommandInFlightError(key)
	}
	until := now.Add(ttl)
	g.held[key] = until

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if g.held[key].Equal(until) {
				delete(g.held, key)
			}
		})
	}, nil
}
