package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"eduscroll-service/internal/app"
	"eduscroll-service/internal/domain"
)

// ContentCache caches the three lesson-load stages (materials, paragraphs,
// questions) with TTL to avoid repeated backing-store hits. Progress reads
// and writes always pass through: derived views are recomputed from the
// source of truth on every request.
type ContentCache struct {
	source app.ContentRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     any
	expiresAt time.Time
}

func NewContentCache(source app.ContentRepository, ttl time.Duration) *ContentCache {
	return &ContentCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedEntry),
	}
}

func (c *ContentCache) Categories(ctx context.Context) ([]domain.Category, error) {
	return c.source.Categories(ctx)
}

func (c *ContentCache) Lessons(ctx context.Context, categoryID int) ([]domain.Lesson, error) {
	return c.source.Lessons(ctx, categoryID)
}

func (c *ContentCache) Materials(ctx context.Context, lessonID int) ([]domain.Material, error) {
	v, err := c.fetch(ctx, fmt.Sprintf("lesson:%d:materials", lessonID), func(ctx context.Context) (any, error) {
		return c.source.Materials(ctx, lessonID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Material), nil
}

func (c *ContentCache) Paragraphs(ctx context.Context, materialID int) ([]domain.Paragraph, error) {
	v, err := c.fetch(ctx, fmt.Sprintf("material:%d:paragraphs", materialID), func(ctx context.Context) (any, error) {
		return c.source.Paragraphs(ctx, materialID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Paragraph), nil
}

func (c *ContentCache) Questions(ctx context.Context, lessonID int) ([]domain.Question, error) {
	v, err := c.fetch(ctx, fmt.Sprintf("lesson:%d:questions", lessonID), func(ctx context.Context) (any, error) {
		return c.source.Questions(ctx, lessonID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

func (c *ContentCache) Progress(ctx context.Context, userID int) ([]domain.ProgressRecord, error) {
	return c.source.Progress(ctx, userID)
}

func (c *ContentCache) SaveProgress(ctx context.Context, userID int, record domain.ProgressRecord) error {
	return c.source.SaveProgress(ctx, userID, record)
}

func (c *ContentCache) fetch(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.value, nil
	}
	c.mu.RUnlock()

	return c.fetchSlow(ctx, key, load)
}

func (c *ContentCache) fetchSlow(ctx context.Context, key string, load func(context.Context) (any, error)) (any, error) {
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		// Re-check in case another goroutine filled the entry.
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.value, nil
		}
		c.mu.RUnlock()

		value, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedEntry{value: value, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations; top-level rand is
	// internally locked, so concurrent misses are safe
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
