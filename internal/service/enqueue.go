package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeSeparate is the asynq task type of the separation pipeline.
	TaskTypeSeparate = "signal:separate"
	// QueueSeparation is the asynq queue separation tasks run on.
	QueueSeparation = "separation"
)

// SeparateTaskPayload identifies the signal a separation task works on.
type SeparateTaskPayload struct {
	SignalID string `json:"signalId"`
	Owner    string `json:"owner"`
}

// TaskEnqueuer hands a signal to exactly one background worker. Any queue
// satisfies the contract as long as each signal is delivered to one worker
// at a time.
type TaskEnqueuer interface {
	EnqueueSeparation(ctx context.Context, owner, signalID string) error
}

// AsynqEnqueuer implements TaskEnqueuer on the asynq Redis queue.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueSeparation(ctx context.Context, owner, signalID string) error {
	task, err := NewSeparateTask(owner, signalID)
	if err != nil {
		return err
	}

	// The worker converts every pipeline failure into an Aborted state, so
	// retries would re-run an already-aborted job.
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueSeparation),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue separation task: %w", err)
	}
	return nil
}

// NewSeparateTask builds the asynq task for one signal.
func NewSeparateTask(owner, signalID string) (*asynq.Task, error) {
	data, err := json.Marshal(SeparateTaskPayload{SignalID: signalID, Owner: owner})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSeparate, data), nil
}
