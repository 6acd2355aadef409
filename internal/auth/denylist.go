package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylist stores revoked credential ids in Redis. Entries expire on
// their own once the credential would have.
type RedisDenylist struct {
	rdb *redis.Client
}

func NewRedisDenylist(rdb *redis.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb}
}

func (d *RedisDenylist) Deny(ctx context.Context, id string, ttl time.Duration) error {
	return d.rdb.Set(ctx, "revoked:"+id, 1, ttl).Err()
}

func (d *RedisDenylist) Denied(ctx context.Context, id string) (bool, error) {
	n, err := d.rdb.Exists(ctx, "revoked:"+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
