// Package cache holds small in-process caches for read-mostly data such as
// the category registry.
package cache

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/log"
)

// Cache is the read-through contract the ledger relies on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Len() int
}

// Sweeper is implemented by caches whose expired entries can be dropped in bulk.
type Sweeper interface {
	CleanExpired() int
}

// Janitor periodically sweeps registered caches until its context ends.
type Janitor struct {
	mu       sync.Mutex
	caches   []Sweeper
	interval time.Duration
	logger   *log.Logger
}

func NewJanitor(interval time.Duration, logger *log.Logger) *Janitor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Janitor{interval: interval, logger: logger.WithComponent(log.ComponentCache)}
}

func (j *Janitor) Register(c Sweeper) {
	j.mu.Lock()
	j.caches = append(j.caches, c)
	j.mu.Unlock()
}

// Run blocks, sweeping every interval, until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				j.logger.Debug("Swept expired cache entries", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one pass over every registered cache.
func (j *Janitor) Sweep() int {
	j.mu.Lock()
	caches := append([]Sweeper(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}
