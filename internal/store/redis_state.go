package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/model"
)

// RedisState implements StateStore on Redis: the current value lives under an
// owner-scoped key, transitions fan out over pub/sub.
type RedisState struct {
	redis *redis.Client
}

func NewRedisState(redisClient *redis.Client) *RedisState {
	return &RedisState{redis: redisClient}
}

func stateKey(owner, signalID string) string { return fmt.Sprintf("sigstate:%s:%s", owner, signalID) }
func stateChannel(signalID string) string    { return fmt.Sprintf("sigstate:%s", signalID) }

func (s *RedisState) Set(ctx context.Context, owner, signalID string, state model.SignalState) error {
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, stateKey(owner, signalID), string(state), 0)
	pipe.Publish(ctx, stateChannel(signalID), string(state))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set signal state: %w", err)
	}
	return nil
}

func (s *RedisState) Get(ctx context.Context, owner, signalID string) (model.SignalState, error) {
	val, err := s.redis.Get(ctx, stateKey(owner, signalID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", apperr.New(apperr.KindNotFound, "signal state not found")
		}
		return "", fmt.Errorf("failed to get signal state: %w", err)
	}
	return model.SignalState(val), nil
}

func (s *RedisState) Subscribe(ctx context.Context, owner, signalID string) (<-chan model.SignalState, error) {
	// Subscribe before the point read so no transition between the two is lost.
	pubsub := s.redis.Subscribe(ctx, stateChannel(signalID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to signal state: %w", err)
	}

	current, err := s.Get(ctx, owner, signalID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		pubsub.Close()
		return nil, err
	}

	out := make(chan model.SignalState, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()

		if current != "" {
			pushLatest(out, current)
			if current.Terminal() {
				return
			}
		}

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				state := model.SignalState(msg.Payload)
				pushLatest(out, state)
				if state.Terminal() {
					return
				}
			}
		}
	}()
	return out, nil
}
