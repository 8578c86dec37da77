package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"eduscroll-service/internal/app"
	"eduscroll-service/internal/domain"
)

// ContentCache caches lesson content in Redis as JSON values keyed per
// load stage and falls back to the backing source on cache miss:
//
//	SET lesson:{lessonID}:materials   [...materials]
//	SET material:{materialID}:paragraphs [...paragraphs]
//	SET lesson:{lessonID}:questions   [...questions]
//
// Progress reads and writes always pass through; rankings and stats are
// recomputed from the source of truth on every request.
type ContentCache struct {
	client *redis.Client
	source app.ContentRepository
	ttl    time.Duration
	sf     singleflight.Group
}

func NewContentCache(client *redis.Client, source app.ContentRepository, ttl time.Duration) *ContentCache {
	return &ContentCache{
		client: client,
		source: source,
		ttl:    ttl,
	}
}

func (c *ContentCache) Categories(ctx context.Context) ([]domain.Category, error) {
	return c.source.Categories(ctx)
}

func (c *ContentCache) Lessons(ctx context.Context, categoryID int) ([]domain.Lesson, error) {
	return c.source.Lessons(ctx, categoryID)
}

func (c *ContentCache) Materials(ctx context.Context, lessonID int) ([]domain.Material, error) {
	key := fmt.Sprintf("lesson:%d:materials", lessonID)
	var materials []domain.Material
	err := c.fetch(ctx, key, &materials, func(ctx context.Context) (any, error) {
		return c.source.Materials(ctx, lessonID)
	})
	return materials, err
}

func (c *ContentCache) Paragraphs(ctx context.Context, materialID int) ([]domain.Paragraph, error) {
	key := fmt.Sprintf("material:%d:paragraphs", materialID)
	var paragraphs []domain.Paragraph
	err := c.fetch(ctx, key, &paragraphs, func(ctx context.Context) (any, error) {
		return c.source.Paragraphs(ctx, materialID)
	})
	return paragraphs, err
}

func (c *ContentCache) Questions(ctx context.Context, lessonID int) ([]domain.Question, error) {
	key := fmt.Sprintf("lesson:%d:questions", lessonID)
	var questions []domain.Question
	err := c.fetch(ctx, key, &questions, func(ctx context.Context) (any, error) {
		return c.source.Questions(ctx, lessonID)
	})
	return questions, err
}

func (c *ContentCache) Progress(ctx context.Context, userID int) ([]domain.ProgressRecord, error) {
	return c.source.Progress(ctx, userID)
}

func (c *ContentCache) SaveProgress(ctx context.Context, userID int, record domain.ProgressRecord) error {
	return c.source.SaveProgress(ctx, userID, record)
}

// fetch decodes the cached JSON value into dest, loading and storing it on
// a miss. Concurrent misses for the same key share one load.
func (c *ContentCache) fetch(ctx context.Context, key string, dest any, load func(context.Context) (any, error)) error {
	if ok, err := c.lookup(ctx, key, dest); err == nil && ok {
		return nil
	}

	raw, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, err
		}

		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			// best-effort write; a failed SET only costs a reload
			_ = c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err()
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (c *ContentCache) lookup(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *ContentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// Top-level rand is internally locked; misses on different keys
	// jitter concurrently.
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
