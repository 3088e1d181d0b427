package jwt

import (
	"time"

	"livechat-backend/internal/env"

	"github.com/go-redis/redis/v8"
)

var (
	USER_SECRET  string
	ADMIN_SECRET string
	RedisClient  *redis.Client
)

const RefreshTokenTTL = 24 * 30 * time.Hour

const (
	RoleUser Role = iota
	RoleAdmin
)

var RoleSecrets = map[Role]string{
	RoleUser:  USER_SECRET,
	RoleAdmin: ADMIN_SECRET,
}

func init() {
	USER_SECRET = env.Get(env.UserSecretKey)
	ADMIN_SECRET = env.Get(env.AdminSecretKey)
	RoleSecrets[RoleUser] = USER_SECRET
	RoleSecrets[RoleAdmin] = ADMIN_SECRET

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.AuthRedisURL),
		Password: env.Get(env.AuthRedisPass),
		DB:       0,
	})
}
