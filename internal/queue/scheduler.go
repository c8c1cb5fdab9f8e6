package queue

import (
	"context"

	"github.com/hibiken/asynq"
)

// Scheduler is the asynq-backed job scheduler handed to the ingestion
// service.
type Scheduler struct {
	client *asynq.Client
}

// NewScheduler wraps an asynq client.
func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

// EnqueueExtract schedules background extraction for a document.
func (s *Scheduler) EnqueueExtract(ctx context.Context, payload ExtractPayload) error {
	return EnqueueExtract(ctx, s.client, payload)
}
