package catalog

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ReloadChannel is the Redis pub/sub channel carrying reload notifications.
const ReloadChannel = "procura:catalog:reloaded"

// Notifier broadcasts successful reloads so sibling instances refresh their
// own snapshots without restart.
type Notifier struct {
	client *redis.Client
	logger *slog.Logger
}

// NewNotifier constructs a notifier.
func NewNotifier(client *redis.Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// Publish announces a completed reload. Failures are logged, not returned:
// the local swap already committed and sibling instances converge on their
// next scheduled re-sync anyway.
func (n *Notifier) Publish(ctx context.Context, reason string) {
	if n == nil || n.client == nil {
		return
	}
	if err := n.client.Publish(ctx, ReloadChannel, reason).Err(); err != nil && n.logger != nil {
		n.logger.Warn("publish catalog reload", slog.Any("error", err))
	}
}

// Listen subscribes to reload notifications and runs the loader for each one
// until the context is cancelled. Reload failures keep the prior snapshots
// live, so they are logged and the loop keeps listening.
func (n *Notifier) Listen(ctx context.Context, loader *Loader) error {
	sub := n.client.Subscribe(ctx, ReloadChannel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := loader.Reload(ctx); err != nil {
				if n.logger != nil {
					n.logger.Error("reload on notification", slog.String("reason", msg.Payload), slog.Any("error", err))
				}
				continue
			}
			if n.logger != nil {
				n.logger.Info("reloaded on notification", slog.String("reason", msg.Payload))
			}
		}
	}
}
