package tokenstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/config"
)

const (
	redisAccessKey  = "locker:token:access"
	redisRefreshKey = "locker:token:refresh"

	redisOpTimeout = 2 * time.Second
)

// RedisStore keeps the credential pair in Redis under two named slots.
// Used for kiosk terminals where several client processes share one
// authenticated identity.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis using the provided configuration.
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &RedisStore{client: client, logger: logger}
}

// Get reads both slots; an unreachable backend reads as empty.
func (s *RedisStore) Get() (Credentials, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	vals, err := s.client.MGet(ctx, redisAccessKey, redisRefreshKey).Result()
	if err != nil {
		s.logger.Warn("token store read failed", zap.Error(err))
		return Credentials{}, false
	}

	creds := Credentials{}
	if access, ok := vals[0].(string); ok {
		creds.AccessToken = access
	}
	if refresh, ok := vals[1].(string); ok {
		creds.RefreshToken = refresh
	}
	if creds.AccessToken == "" {
		return Credentials{}, false
	}
	return creds, true
}

// Set persists the pair.
func (s *RedisStore) Set(creds Credentials) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.MSet(ctx, redisAccessKey, creds.AccessToken, redisRefreshKey, creds.RefreshToken).Err(); err != nil {
		s.logger.Warn("token store write failed", zap.Error(err))
	}
}

// SetAccessToken replaces only the access slot.
func (s *RedisStore) SetAccessToken(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, redisAccessKey, token, 0).Err(); err != nil {
		s.logger.Warn("token store write failed", zap.Error(err))
	}
}

// Clear removes both slots.
func (s *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, redisAccessKey, redisRefreshKey).Err(); err != nil {
		s.logger.Warn("token store clear failed", zap.Error(err))
	}
}

// Close closes the underlying client.
func (s *RedisStore) Close() {
	if s != nil && s.client != nil {
		_ = s.client.Close()
	}
}
