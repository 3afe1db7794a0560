package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/capitalize-ai/formbot/internal/model"
	"github.com/capitalize-ai/formbot/pkg/logger"
)

const keyPrefix = "formbot:conversation:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore is a Redis-backed Store. Values are JSON.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, log *logger.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Info("connected to Redis state store",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return newRedisStore(client, cfg.TTL, log), nil
}

func newRedisStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: log}
}

func stateKey(conversationID string) string {
	return keyPrefix + conversationID
}

// Get returns the state for a conversation.
func (s *RedisStore) Get(ctx context.Context, conversationID string) (model.ConversationState, error) {
	val, err := s.client.Get(ctx, stateKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ConversationState{}, ErrNotFound
	}
	if err != nil {
		return model.ConversationState{}, fmt.Errorf("redis get: %w", err)
	}

	var st model.ConversationState
	if err := json.Unmarshal(val, &st); err != nil {
		s.logger.Warn("discarding corrupt conversation state",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return model.ConversationState{}, ErrNotFound
	}
	return st, nil
}

// Put stores a state with the configured TTL.
func (s *RedisStore) Put(ctx context.Context, st model.ConversationState) error {
	if st.ConversationID == "" {
		return errors.New("conversation id is required")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(st.ConversationID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a state.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, stateKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks if Redis is available.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
