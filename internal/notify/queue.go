package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"investment-bot/internal/monitoring"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TaskDeliver = "notify:deliver"
	QueueName   = "notifications"
	maxRetry    = 5
)

type deliverTaskPayload struct {
	UserID  int64   `json:"user_id"`
	Payload Payload `json:"payload"`
}

// NewDeliverTask encodes a delivery as an asynq task
func NewDeliverTask(userID int64, payload Payload) (*asynq.Task, error) {
	body, err := json.Marshal(deliverTaskPayload{UserID: userID, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification: %w", err)
	}
	return asynq.NewTask(TaskDeliver, body, asynq.MaxRetry(maxRetry), asynq.Queue(QueueName), asynq.TaskID(payload.ID)), nil
}

// QueueDispatcher enqueues deliveries on redis through asynq so they
// survive restarts and are retried.
type QueueDispatcher struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewQueueDispatcher(client *asynq.Client, logger *zap.Logger) *QueueDispatcher {
	return &QueueDispatcher{client: client, logger: logger.Named("notify")}
}

func (q *QueueDispatcher) Notify(ctx context.Context, userID int64, payload Payload) {
	stamp(&payload)
	task, err := NewDeliverTask(userID, payload)
	if err == nil {
		_, err = q.client.EnqueueContext(context.WithoutCancel(ctx), task)
	}
	if err != nil {
		monitoring.NotificationsTotal.WithLabelValues(string(payload.Kind), "dropped").Inc()
		q.logger.Error("failed to enqueue notification",
			zap.String("kind", string(payload.Kind)),
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

// NewDeliveryHandler decodes queued deliveries and sends them
func NewDeliveryHandler(d Deliverer, logger *zap.Logger) asynq.HandlerFunc {
	logger = logger.Named("notify")
	return func(ctx context.Context, t *asynq.Task) error {
		var body deliverTaskPayload
		if err := json.Unmarshal(t.Payload(), &body); err != nil {
			logger.Error("malformed notification task", zap.Error(err))
			return fmt.Errorf("decode notification: %v: %w", err, asynq.SkipRetry)
		}
		return deliver(ctx, d, body.UserID, body.Payload, logger)
	}
}

// NewDeliveryServer builds the asynq worker server for the notification queue
func NewDeliveryServer(opt asynq.RedisClientOpt, concurrency int, d Deliverer, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueName: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("notification task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskDeliver, NewDeliveryHandler(d, logger))
	return server, mux
}
