// Package testutil provides shared fakes for tests across the pipeline.
package testutil

import (
	"context"
	"sync"

	"github.com/modfox/moderation-pipeline/cache"
)

// MockScoreClient is a mock implementation of the classifier client.
type MockScoreClient struct {
	ScoreBatchFunc func(ctx context.Context, texts []string) ([]map[string]float64, error)

	mu        sync.Mutex
	CallCount int
	LastTexts []string
}

// ScoreBatch records the call, then delegates to ScoreBatchFunc. The default
// scores every text as mildly toxic and unflagged.
func (m *MockScoreClient) ScoreBatch(ctx context.Context, texts []string) ([]map[string]float64, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastTexts = texts
	m.mu.Unlock()

	if m.ScoreBatchFunc != nil {
		return m.ScoreBatchFunc(ctx, texts)
	}

	out := make([]map[string]float64, len(texts))
	for i := range texts {
		out[i] = map[string]float64{"toxic": 0.1}
	}
	return out, nil
}

// Calls returns how many times ScoreBatch was invoked.
func (m *MockScoreClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// MemoryCache is an in-memory ResultCache for tests.
type MemoryCache struct {
	GetFunc func(ctx context.Context, hash string) (*cache.Entry, error)
	PutFunc func(ctx context.Context, hash string, e cache.Entry) error

	mu       sync.Mutex
	Entries  map[string]cache.Entry
	PutCount int
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{Entries: make(map[string]cache.Entry)}
}

// Get returns the stored entry or cache.ErrNotFound.
func (m *MemoryCache) Get(ctx context.Context, hash string) (*cache.Entry, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, hash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entries[hash]
	if !ok {
		return nil, cache.ErrNotFound
	}
	copied := e
	return &copied, nil
}

// Put stores the entry.
func (m *MemoryCache) Put(ctx context.Context, hash string, e cache.Entry) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, hash, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PutCount++
	m.Entries[hash] = e
	return nil
}
