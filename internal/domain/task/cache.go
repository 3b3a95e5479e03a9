package task

import (
	"sync"

	"github.com/rpggio/apontador/internal/teamwork"
)

type cacheKey struct {
	projectID        string
	includeCompleted bool
}

// Cache keeps raw task trees per project and completion flag until
// invalidated.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]teamwork.Task
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: map[cacheKey][]teamwork.Task{}}
}

func (c *Cache) Get(projectID string, includeCompleted bool) ([]teamwork.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tasks, ok := c.entries[cacheKey{projectID, includeCompleted}]
	return tasks, ok
}

func (c *Cache) Put(projectID string, includeCompleted bool, tasks []teamwork.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{projectID, includeCompleted}] = tasks
}

// Invalidate drops both completion variants of a project.
func (c *Cache) Invalidate(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{projectID, true})
	delete(c.entries, cacheKey{projectID, false})
}
