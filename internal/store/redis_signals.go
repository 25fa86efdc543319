package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/model"
)

// RedisSignals implements SignalStore on Redis. Rows are JSON values under
// owner-scoped keys; an index set per owner supports listing.
type RedisSignals struct {
	redis *redis.Client
}

func NewRedisSignals(redisClient *redis.Client) *RedisSignals {
	return &RedisSignals{redis: redisClient}
}

func signalKey(owner, id string) string { return fmt.Sprintf("signal:%s:%s", owner, id) }
func signalIndexKey(owner string) string { return fmt.Sprintf("signals:%s", owner) }
func stemKey(owner, id string) string   { return fmt.Sprintf("stem:%s:%s", owner, id) }

func (s *RedisSignals) InsertSignal(ctx context.Context, sig *model.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, signalKey(sig.Owner, sig.ID), data, 0)
	pipe.SAdd(ctx, signalIndexKey(sig.Owner), sig.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

func (s *RedisSignals) GetSignal(ctx context.Context, owner, id string) (*model.Signal, error) {
	data, err := s.redis.Get(ctx, signalKey(owner, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.New(apperr.KindNotFound, "signal not found")
		}
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}

	var sig model.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal: %w", err)
	}
	sig.Owner = owner
	return &sig, nil
}

func (s *RedisSignals) ListSignals(ctx context.Context, owner string) ([]*model.Signal, error) {
	ids, err := s.redis.SMembers(ctx, signalIndexKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list signal index: %w", err)
	}

	signals := make([]*model.Signal, 0, len(ids))
	for _, id := range ids {
		sig, err := s.GetSignal(ctx, owner, id)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				// index can lag a concurrent delete
				continue
			}
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

func (s *RedisSignals) UpdateSignal(ctx context.Context, sig *model.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	if err := s.redis.Set(ctx, signalKey(sig.Owner, sig.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update signal: %w", err)
	}
	return nil
}

func (s *RedisSignals) DeleteSignal(ctx context.Context, owner, id string) (bool, error) {
	pipe := s.redis.TxPipeline()
	del := pipe.Del(ctx, signalKey(owner, id))
	pipe.SRem(ctx, signalIndexKey(owner), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete signal: %w", err)
	}
	return del.Val() > 0, nil
}

func (s *RedisSignals) InsertStem(ctx context.Context, stem *model.Stem) error {
	data, err := json.Marshal(stem)
	if err != nil {
		return fmt.Errorf("failed to marshal stem: %w", err)
	}
	if err := s.redis.Set(ctx, stemKey(stem.Owner, stem.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to insert stem: %w", err)
	}
	return nil
}

func (s *RedisSignals) GetStem(ctx context.Context, owner, id string) (*model.Stem, error) {
	data, err := s.redis.Get(ctx, stemKey(owner, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperr.New(apperr.KindNotFound, "stem not found")
		}
		return nil, fmt.Errorf("failed to get stem: %w", err)
	}

	var stem model.Stem
	if err := json.Unmarshal(data, &stem); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stem: %w", err)
	}
	stem.Owner = owner
	return &stem, nil
}

func (s *RedisSignals) UpdateStem(ctx context.Context, stem *model.Stem) error {
	return s.InsertStem(ctx, stem)
}

func (s *RedisSignals) DeleteStem(ctx context.Context, owner, id string) (bool, error) {
	n, err := s.redis.Del(ctx, stemKey(owner, id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete stem: %w", err)
	}
	return n > 0, nil
}
