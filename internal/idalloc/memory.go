package idalloc

import (
	"context"
	"sync"
)

type memoryAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryAllocator returns a process-local allocator for the memory store.
func NewMemoryAllocator() Allocator {
	return &memoryAllocator{counters: make(map[string]int64)}
}

func (a *memoryAllocator) Next(_ context.Context, counter string) (int64, error) {
	if err := validateCounter(counter); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[counter]++
	return a.counters[counter], nil
}
