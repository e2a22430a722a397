package subscribers

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/courtbot/tennis-bot/internal/errors"
)

const subscribersKey = "bot:subscribers"

// RedisStore keeps the subscriber list in a Redis set, for deployments where
// the bot container has no durable filesystem.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStore builds a Redis-backed Store.
func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{client: client, log: log}
}

func (s *RedisStore) Add(ctx context.Context, chatID int64) (bool, error) {
	var added int64
	err := apperrors.WithRetry(ctx, func() error {
		n, err := s.client.SAdd(ctx, subscribersKey, chatID).Result()
		if err != nil {
			return apperrors.NewStorageError(err)
		}
		added = n
		return nil
	})
	if err != nil {
		s.log.Error("failed to add subscriber", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return false, err
	}

	return added > 0, nil
}

func (s *RedisStore) Remove(ctx context.Context, chatID int64) (bool, error) {
	var removed int64
	err := apperrors.WithRetry(ctx, func() error {
		n, err := s.client.SRem(ctx, subscribersKey, chatID).Result()
		if err != nil {
			return apperrors.NewStorageError(err)
		}
		removed = n
		return nil
	})
	if err != nil {
		s.log.Error("failed to remove subscriber", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return false, err
	}

	return removed > 0, nil
}

func (s *RedisStore) Snapshot(ctx context.Context) ([]int64, error) {
	members, err := s.client.SMembers(ctx, subscribersKey).Result()
	if err != nil {
		s.log.Error("failed to read subscribers", slog.Any("error", err))
		return nil, apperrors.NewStorageError(err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			s.log.Warn("skipping malformed subscriber entry", slog.String("member", member))
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
