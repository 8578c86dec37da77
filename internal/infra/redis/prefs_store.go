package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	guestKey    = "prefs:guest_id"
	categoryKey = "prefs:preferred_category"
)

// PrefsStore keeps the client's session flags (guest registration,
// preferred category) in Redis. Implements app.Preferences.
type PrefsStore struct {
	client *redis.Client
}

func NewPrefsStore(client *redis.Client) *PrefsStore {
	return &PrefsStore{client: client}
}

func (p *PrefsStore) SetGuest(ctx context.Context, userID int) error {
	return p.client.Set(ctx, guestKey, userID, 0).Err()
}

func (p *PrefsStore) Guest(ctx context.Context) (int, bool, error) {
	return p.lookupInt(ctx, guestKey)
}

func (p *PrefsStore) SetPreferredCategory(ctx context.Context, categoryID int) error {
	return p.client.Set(ctx, categoryKey, categoryID, 0).Err()
}

func (p *PrefsStore) PreferredCategory(ctx context.Context) (int, bool, error) {
	return p.lookupInt(ctx, categoryKey)
}

func (p *PrefsStore) Clear(ctx context.Context) error {
	return p.client.Del(ctx, guestKey, categoryKey).Err()
}

func (p *PrefsStore) lookupInt(ctx context.Context, key string) (int, bool, error) {
	raw, err := p.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}
