package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyFmt = "session:%d"

// Login sessions live in redis so a logout revokes the token before it
// expires.

func SetSession(ctx context.Context, rdb *redis.Client, userId uint, token string, duration time.Duration) error {
	return rdb.Set(ctx, fmt.Sprintf(sessionKeyFmt, userId), token, duration).Err()
}

func GetSession(ctx context.Context, rdb *redis.Client, userId uint) (string, error) {
	return rdb.Get(ctx, fmt.Sprintf(sessionKeyFmt, userId)).Result()
}

func DeleteSession(ctx context.Context, rdb *redis.Client, userId uint) error {
	return rdb.Del(ctx, fmt.Sprintf(sessionKeyFmt, userId)).Err()
}
