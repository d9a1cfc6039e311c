// Package jobs hosts the background worker and its task definitions.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/procura-io/procura/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogReload is the task type for atomic catalog reloads.
	TaskCatalogReload = "catalog:reload"
)

// CatalogReloadPayload records who or what requested the reload.
type CatalogReloadPayload struct {
	Reason string `json:"reason"`
}

// NewCatalogReloadTask constructs an Asynq task.
func NewCatalogReloadTask(payload CatalogReloadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogReload, data), nil
}

// NewCatalogReloadHandler builds the handler that runs the loader and, on
// success, broadcasts the reload so sibling instances refresh too.
func NewCatalogReloadHandler(loader *catalog.Loader, notifier *catalog.Notifier) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CatalogReloadPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := loader.Reload(ctx); err != nil {
			return err
		}
		notifier.Publish(ctx, payload.Reason)
		return nil
	}
}
