package db

import (
	"context"

	"go-quest/internal/quest"

	lru "github.com/hashicorp/golang-lru"
)

// CachedRepository keeps completed quests in an LRU cache. Completed quests
// never change again, so cached copies cannot go stale.
type CachedRepository struct {
	inner quest.Repository
	cache *lru.Cache
}

// NewCachedRepository wraps a repository with a cache of the given size
func NewCachedRepository(inner quest.Repository, size int) (*CachedRepository, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedRepository{inner: inner, cache: cache}, nil
}

// Save writes through and caches the quest once it is completed
func (r *CachedRepository) Save(ctx context.Context, q *quest.Quest) error {
	if err := r.inner.Save(ctx, q); err != nil {
		r.cache.Remove(q.ID)
		return err
	}
	if q.Status == quest.StatusCompleted {
		r.cache.Add(q.ID, q.Clone())
	} else {
		r.cache.Remove(q.ID)
	}
	return nil
}

// Get serves completed quests from the cache
func (r *CachedRepository) Get(ctx context.Context, id string) (*quest.Quest, error) {
	if v, ok := r.cache.Get(id); ok {
		return v.(*quest.Quest).Clone(), nil
	}
	q, err := r.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.Status == quest.StatusCompleted {
		r.cache.Add(id, q.Clone())
	}
	return q, nil
}

// ListByStatus always reads through
func (r *CachedRepository) ListByStatus(ctx context.Context, status quest.Status) ([]*quest.Quest, error) {
	return r.inner.ListByStatus(ctx, status)
}

// Len reports the number of cached quests
func (r *CachedRepository) Len() int {
	return r.cache.Len()
}
