package jobs

import (
	"context"

	"github.com/hibiken/asynq"
)

// Enqueuer submits background tasks from the HTTP layer.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueCatalogReload schedules an atomic catalog reload.
func (e *Enqueuer) EnqueueCatalogReload(ctx context.Context, reason string) error {
	task, err := NewCatalogReloadTask(CatalogReloadPayload{Reason: reason})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}
