package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/webpiratt/swapd/internal/tasks"
)

// Notifier dispatches a user-facing message about a state change. The
// monitor loop treats delivery as fire-and-forget: a notification failure
// never affects order execution.
type Notifier interface {
	Notify(ctx context.Context, userID, kind string, payload tasks.NotificationPayload) error
}

// QueuedNotifier hands notifications to the asynq worker, which owns
// delivery retries and backoff.
type QueuedNotifier struct {
	client *asynq.Client
	logger *logrus.Logger
}

var _ Notifier = (*QueuedNotifier)(nil)

func NewQueuedNotifier(client *asynq.Client, logger *logrus.Logger) *QueuedNotifier {
	return &QueuedNotifier{client: client, logger: logger}
}

func (n *QueuedNotifier) Notify(ctx context.Context, userID, kind string, payload tasks.NotificationPayload) error {
	payload.UserID = userID
	payload.Kind = kind

	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("fail to marshal to json, err: %w", err)
	}

	_, err = n.client.EnqueueContext(ctx,
		asynq.NewTask(tasks.TypeNotification, buf),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Retention(10*time.Minute),
		asynq.Queue(tasks.QUEUE_NAME))
	if err != nil {
		return fmt.Errorf("fail to enqueue task, err: %w", err)
	}
	return nil
}
