package redis

import (
	"context"
	"strconv"
	"time"
)

// UpdateDeduper remembers webhook update ids so redeliveries are dropped.
type UpdateDeduper struct {
	client RedisClient
	ttl    time.Duration
}

func NewUpdateDeduper(client RedisClient, ttl time.Duration) *UpdateDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UpdateDeduper{client: client, ttl: ttl}
}

// FirstSeen reports whether updateID has not been seen within the TTL and
// records it.
func (d *UpdateDeduper) FirstSeen(ctx context.Context, updateID int64) (bool, error) {
	return d.client.SetNX(ctx, UpdateKey(updateID), 1, d.ttl)
}

func UpdateKey(updateID int64) string {
	return "tg_update:" + strconv.FormatInt(updateID, 10)
}
