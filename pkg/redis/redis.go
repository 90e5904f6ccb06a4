package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	blacklistPrefix   = "blacklist:"
	popularSearchKey  = "search:popular"
	maxSearchTermSize = 100
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"addr": cfg.Addr(),
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"addr": cfg.Addr(),
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// Store wraps a client with the token blacklist, JSON cache and search ranking
// operations used by the services.
type Store struct {
	client *redis.Client
}

func NewStore(c *redis.Client) *Store {
	return &Store{client: c}
}

// BlacklistToken adds a token to the blacklist until it would have expired anyway
func (s *Store) BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, blacklistPrefix+token, "revoked", expiry).Err(); err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}
	logger.Debug("Token successfully blacklisted", map[string]interface{}{
		"expiry": expiry.String(),
	})
	return nil
}

// IsTokenBlacklisted checks if a token is in the blacklist
func (s *Store) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	val, err := s.client.Get(ctx, blacklistPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, err
	}
	return val == "revoked", nil
}

// GetJSON loads key into dest. The bool is false on a cache miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// corrupt entry: drop it so the next read repopulates
		s.client.Del(ctx, key)
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// IncrementSearchTerm bumps the popularity score of a normalized query.
func (s *Store) IncrementSearchTerm(ctx context.Context, term string) error {
	term = NormalizeSearchTerm(term)
	if term == "" {
		return nil
	}
	return s.client.ZIncrBy(ctx, popularSearchKey, 1, term).Err()
}

// TopSearchTerms returns the most searched queries, highest first.
func (s *Store) TopSearchTerms(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	return s.client.ZRevRange(ctx, popularSearchKey, 0, int64(limit-1)).Result()
}

// NormalizeSearchTerm lowercases, trims and collapses whitespace so that
// "Red  Shirt" and "red shirt" count as the same search.
func NormalizeSearchTerm(term string) string {
	term = strings.Join(strings.Fields(strings.ToLower(term)), " ")
	if len(term) > maxSearchTermSize {
		term = term[:maxSearchTermSize]
	}
	return term
}
